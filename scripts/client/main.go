package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type client struct {
	baseURL string
	token   string
}

func (c *client) call(method, path string, body any) envelope {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		fmt.Printf("%s %s -> %s (raw: %s)\n", method, path, resp.Status, raw)
		return env
	}
	fmt.Printf("%s %s -> %d %q %s\n", method, path, env.StatusCode, env.Message, env.Data)
	return env
}

// Walks the register / ingest / re-ingest / timestamp-collision flow against a
// running server.
func main() {
	baseURL := "http://localhost:8080"
	if v := os.Getenv("INGEST_URL"); v != "" {
		baseURL = v
	}
	c := &client{baseURL: baseURL}
	suffix := time.Now().Format("150405")

	env := c.call(http.MethodPost, "/user", map[string]string{
		"name":     "Client",
		"email":    "client-" + suffix + "@example.com",
		"password": "secret1",
	})
	var session struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(env.Data, &session); err != nil || session.AccessToken == "" {
		panic(fmt.Errorf("no access token in %s", env.Data))
	}
	c.token = session.AccessToken

	serial := "SN-" + suffix
	c.call(http.MethodPost, "/device/register", map[string]string{
		"serialNumber": serial,
		"model":        "AL-1",
		"deviceId":     "dev-" + suffix,
	})

	batch := map[string]any{
		"serialNumber": serial,
		"records": []map[string]any{
			{"recordNumber": 1, "timestamp": "2024-01-01T00:00:00Z", "value": 10, "unit": "mg/L"},
		},
	}
	c.call(http.MethodPost, "/device/data/bulk", batch) // acceptedCount 1
	c.call(http.MethodPost, "/device/data/bulk", batch) // acceptedCount 0
	c.call(http.MethodPost, "/device/data/bulk", map[string]any{
		"serialNumber": serial,
		"records": []map[string]any{
			{"recordNumber": 2, "timestamp": "2024-01-01T00:00:00Z", "value": 11, "unit": "mg/L"},
		},
	}) // acceptedCount 0, same timestamp

	c.call(http.MethodGet, "/device/"+serial+"/lastedRecord", nil)
	c.call(http.MethodGet, "/device/"+serial+"/records", nil)
}
