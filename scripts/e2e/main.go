package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Steps:
// 1. Create an account and register a device over HTTP
// 2. Ingest overlapping batches concurrently
// 3. Check that exactly the unique readings were stored
// 4. Read the readings_accepted topic and check one event per stored reading
// 5. Wait for the lastvalue consumer to move the device's current value

const (
	baseURL = "http://localhost:8080"
	broker  = "localhost:9092"
	topic   = "readings_accepted"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func call(token, method, path string, body any) (envelope, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return envelope{}, err
		}
	}
	req, err := http.NewRequest(method, baseURL+path, &buf)
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("%s %s: %w (raw: %s)", method, path, err, raw)
	}
	if env.StatusCode >= 300 {
		return env, fmt.Errorf("%s %s: %d %s", method, path, env.StatusCode, env.Message)
	}
	return env, nil
}

func must[T any](v T, err error) T {
	if err != nil {
		fmt.Println("FAIL:", err)
		os.Exit(1)
	}
	return v
}

func main() {
	suffix := time.Now().Format("150405")
	serial := "SN-E2E-" + suffix
	deviceID := "dev-e2e-" + suffix

	env := must(call("", http.MethodPost, "/user", map[string]string{
		"name":     "E2E",
		"email":    "e2e-" + suffix + "@example.com",
		"password": "secret1",
	}))
	var session struct {
		AccessToken string `json:"accessToken"`
	}
	must(0, json.Unmarshal(env.Data, &session))
	token := session.AccessToken

	must(call(token, http.MethodPost, "/device/register", map[string]string{
		"serialNumber": serial,
		"model":        "AL-1",
		"deviceId":     deviceID,
	}))

	// Ten batches, each overlapping the next by half.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for b := range 10 {
		wg.Go(func() {
			records := make([]map[string]any, 0, 10)
			for i := b * 5; i < b*5+10; i++ {
				records = append(records, map[string]any{
					"recordNumber": i,
					"timestamp":    base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
					"value":        float64(i) / 10,
					"unit":         "mg/L",
				})
			}
			if _, err := call(token, http.MethodPost, "/device/data/bulk", map[string]any{
				"serialNumber": serial,
				"records":      records,
			}); err != nil {
				fmt.Println("batch failed:", err)
			}
		})
	}
	wg.Wait()

	const expected = 55 // record numbers 0..54
	env = must(call(token, http.MethodGet, "/device/"+serial+"/records", nil))
	var stored []map[string]any
	must(0, json.Unmarshal(env.Data, &stored))
	fmt.Printf("Stored readings: %d (expected %d)\n", len(stored), expected)
	if len(stored) != expected {
		os.Exit(1)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		StartOffset: kafka.FirstOffset,
	})
	defer reader.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	events := 0
	for events < expected {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			fmt.Println("FAIL: reading topic:", err)
			os.Exit(1)
		}
		if string(m.Key) == deviceID {
			events++
		}
	}
	fmt.Printf("Accepted-reading events for %s: %d\n", deviceID, events)

	// The lastvalue consumer should settle on the highest record number.
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		env = must(call(token, http.MethodGet, "/device/serial/"+serial, nil))
		var device struct {
			CurrentValue *float64 `json:"currentValue"`
		}
		must(0, json.Unmarshal(env.Data, &device))
		if device.CurrentValue != nil && *device.CurrentValue == 5.4 {
			fmt.Println("E2E test completed")
			return
		}
		time.Sleep(time.Second)
	}
	fmt.Println("FAIL: current value never reached the latest reading")
	os.Exit(1)
}
