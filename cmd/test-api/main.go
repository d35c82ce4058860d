// Package main is a smoke-test utility for a running backend. It calls /health
// and /version and, when credentials are given, logs in and lists the caller's
// organizations. Useful for quick post-deployment checks.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "backend base URL")
	email := flag.String("email", "", "login email")
	password := flag.String("password", os.Getenv("BLOKID_SMOKE_PASSWORD"), "login password")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	failed := false

	for _, path := range []string{"/health", "/version"} {
		if !check(client, http.MethodGet, *baseURL+path, "", nil) {
			failed = true
		}
	}

	if *email != "" {
		token, err := login(client, *baseURL, *email, *password)
		if err != nil {
			fmt.Printf("Login failed: %v\n", err)
			os.Exit(1)
		}
		if !check(client, http.MethodGet, *baseURL+"/organizations", token, nil) {
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

func check(client *http.Client, method, url, token string, body []byte) bool {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s %s -> %d\n%s\n", method, url, resp.StatusCode, data)
	return resp.StatusCode < 400
}

func login(client *http.Client, baseURL, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := client.Post(baseURL+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, data)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
