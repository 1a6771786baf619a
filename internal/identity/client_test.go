package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	"github.com/schoolhub-io/schoolhub-api/pkg/config"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.IdentityConfig{BaseURL: srv.URL, APIKey: "test_key", Timeout: 2 * time.Second}, zap.NewNop())
	return client, srv
}

func TestCreateUser(t *testing.T) {
	var gotAuth string
	var gotPayload createUserPayload
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/users", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "user_123", "username": gotPayload.Username})
	})

	user, err := client.CreateUser(context.Background(), CreateUserInput{
		Username:  "jdoe",
		Password:  "S3cret!pass",
		FirstName: "John",
		LastName:  "Doe",
		Role:      models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Equal(t, "user_123", user.ID)
	assert.Equal(t, "teacher", user.Role)
	assert.Equal(t, "Bearer test_key", gotAuth)
	assert.Equal(t, "teacher", gotPayload.PublicMetadata["role"])
}

func TestCreateUserRelaysProviderMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"code":"form_password_pwned","message":"pwned","long_message":"Password has been found in an online data breach."}]}`))
	})

	_, err := client.CreateUser(context.Background(), CreateUserInput{Username: "jdoe", Password: "x", Role: models.RoleStudent})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "data breach")
}

func TestUpdateUserOmitsEmptyPassword(t *testing.T) {
	var raw map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/users/user_1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusOK)
	})

	err := client.UpdateUser(context.Background(), "user_1", UpdateUserInput{Username: "jdoe", FirstName: "John", LastName: "Doe"})
	require.NoError(t, err)
	_, hasPassword := raw["password"]
	assert.False(t, hasPassword)
}

func TestDeleteUserMissingAccountIsIdempotent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"message":"not found"}]}`))
	})

	assert.NoError(t, client.DeleteUser(context.Background(), "user_unknown"))
}

func TestTimeoutSurfacesDistinctKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	client := NewClient(config.IdentityConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, zap.NewNop())

	err := client.DeleteUser(context.Background(), "user_1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstreamTimeout.Code, appErrors.FromError(err).Code)
}
