// Command gentoken prints a Firebase ID token for a uid, for calling the chat
// API by hand:
//
//	curl -H "Authorization: Bearer $(go run ./cmd/gentoken -uid alice -apikey ...)" ...
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

const signInURLFormat = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithCustomToken?key=%s"

type SignInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

func main() {
	ctx := context.Background()
	uidPtr := flag.String("uid", "", "User UID for token generation")
	apiKeyPtr := flag.String("apikey", "", "Firebase API key for Identity Toolkit REST API")
	credentialsPtr := flag.String("credentials", "./service_account_key.json", "Service account key file")
	flag.Parse()

	if *uidPtr == "" {
		log.Fatalf("Please provide a user UID using the -uid flag")
	}
	if *apiKeyPtr == "" {
		log.Fatalf("Please provide the web API key using the -apikey flag")
	}

	absPath, err := filepath.Abs(*credentialsPtr)
	if err != nil {
		log.Fatalf("failed to get absolute path: %v", err)
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(absPath))
	if err != nil {
		log.Fatalf("error initializing app: %v", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("error getting Auth client: %v", err)
	}

	customToken, err := client.CustomToken(ctx, *uidPtr)
	if err != nil {
		log.Fatalf("error creating custom token: %v", err)
	}

	signInResp, err := exchange(ctx, *apiKeyPtr, customToken)
	if err != nil {
		log.Fatalf("error exchanging custom token: %v", err)
	}
	fmt.Println(signInResp.IDToken)
}

// exchange trades a custom token for an ID token.
func exchange(ctx context.Context, apiKey, customToken string) (*SignInResponse, error) {
	payloadBytes, err := json.Marshal(map[string]any{
		"token":             customToken,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf(signInURLFormat, apiKey), bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-OK HTTP status: %d, response: %s", resp.StatusCode, string(body))
	}

	var signInResp SignInResponse
	if err := json.Unmarshal(body, &signInResp); err != nil {
		return nil, err
	}
	return &signInResp, nil
}
