package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	baseURL  = env("HISTOGRAPH_URL", "http://localhost:3001")
	user     = env("ADMIN_NAME", "histograph")
	password = env("ADMIN_PASSWORD", "histograph")
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	dataset := fmt.Sprintf("smoke-%d", time.Now().Unix())
	pits := `{"id":"amsterdam","type":"hg:Place","name":"Amsterdam"}` + "\n" +
		`{"id":"utrecht","type":"hg:Place","name":"Utrecht"}` + "\n"

	steps := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		want        int
	}{
		{"Create dataset", "POST", "/datasets", "application/json", fmt.Sprintf(`{"id":%q,"title":"Smoke test"}`, dataset), http.StatusCreated},
		{"Get dataset", "GET", "/datasets/" + dataset, "", "", http.StatusOK},
		{"Upload pits", "PUT", "/datasets/" + dataset + "/pits", "application/x-ndjson", pits, http.StatusCreated},
		{"Upload pits again", "PUT", "/datasets/" + dataset + "/pits", "application/x-ndjson", pits, http.StatusOK},
		{"Download pits", "GET", "/datasets/" + dataset + "/pits", "", "", http.StatusOK},
		{"Update dataset", "PATCH", "/datasets/" + dataset, "application/json", `{"title":"Smoke test, renamed"}`, http.StatusOK},
		{"Delete dataset", "DELETE", "/datasets/" + dataset, "", "", http.StatusOK},
		{"Dataset gone", "GET", "/datasets/" + dataset, "", "", http.StatusNotFound},
	}

	for i, step := range steps {
		fmt.Printf("%d. %s...\n", i+1, step.name)
		if !sendRequest(step.method, step.path, step.contentType, step.body, step.want) {
			fmt.Printf("FAILED: %s\n", step.name)
			os.Exit(1)
		}
		fmt.Printf("PASSED: %s\n", step.name)
	}
}

func sendRequest(method, endpoint, contentType, payload string, want int) bool {
	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.SetBasicAuth(user, password)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		fmt.Printf("Request failed with status %d (want %d): %s\n", resp.StatusCode, want, string(respBody))
		return false
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, respBody, "", "  ") == nil {
		respBody = pretty.Bytes()
	}
	fmt.Printf("Response: %s\n", string(respBody))
	return true
}
