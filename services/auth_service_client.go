// phunction/services/auth_service_client.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// AuthServiceClient talks to the external auth collaborator. Phunction never
// stores credentials itself: sign-up/sign-in/sign-out are proxied, and
// request identity normally arrives pre-validated from the gateway as an
// X-User-ID header. ValidateToken exists for surfaces the gateway cannot
// front (SSE streams carry a query-param token).
type AuthServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type ValidateResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type SessionResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}

func NewAuthServiceClient(baseURL, token string) *AuthServiceClient {
	return &AuthServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SignUp creates the auth-side account and returns its user id plus a fresh
// session. The caller creates the user document afterwards — two independent
// writes, so a crash in between leaves an auth account without a profile.
func (c *AuthServiceClient) SignUp(email, password string) (*SessionResponse, error) {
	return c.postSession("/auth/signup", map[string]interface{}{
		"email":    email,
		"password": password,
	})
}

// SignIn exchanges credentials for a session.
func (c *AuthServiceClient) SignIn(email, password string) (*SessionResponse, error) {
	return c.postSession("/auth/signin", map[string]interface{}{
		"email":    email,
		"password": password,
	})
}

// SignOut revokes a session token.
func (c *AuthServiceClient) SignOut(accessToken string) error {
	_, err := c.post("/auth/signout", map[string]interface{}{
		"access_token": accessToken,
	})
	return err
}

// ValidateToken calls /auth/validate on the auth service.
func (c *AuthServiceClient) ValidateToken(accessToken string) (*ValidateResponse, error) {
	body, err := c.post("/auth/validate", map[string]interface{}{
		"access_token": accessToken,
	})
	if err != nil {
		return nil, err
	}
	var out ValidateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AuthServiceClient) postSession(path string, payload map[string]interface{}) (*SessionResponse, error) {
	body, err := c.post(path, payload)
	if err != nil {
		return nil, err
	}
	var out SessionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AuthServiceClient) post(path string, payload map[string]interface{}) ([]byte, error) {
	url := fmt.Sprintf("%s%s", c.BaseURL, path)

	jsonData, _ := json.Marshal(payload)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token) // service → auth token

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("AuthService %s returned %d: %s", path, resp.StatusCode, string(body))
		return nil, fmt.Errorf("auth service %s failed: %d", path, resp.StatusCode)
	}

	return body, nil
}
