package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fires concurrent single-unit orders against one freshly created shop item
// on a running server and checks that exactly stock of them succeed.
func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base url")
	stock := flag.Int("stock", 20, "initial stock of the contested item")
	requests := flag.Int("requests", 50, "number of concurrent orders")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()
	client := &http.Client{Timeout: 10 * time.Second}

	suffix := uuid.NewString()[:8]
	var customer struct {
		ID int64 `json:"id"`
	}
	if err := post(client, *addr+"/customers", "", map[string]any{
		"name": "Stress", "surname": "Test", "email": "stress-" + suffix + "@example.com",
	}, http.StatusCreated, &customer); err != nil {
		logger.Fatal().Err(err).Msg("failed to create customer")
	}

	var item struct {
		ID int64 `json:"id"`
	}
	if err := post(client, *addr+"/shop-items", "", map[string]any{
		"title": "Flash sale item " + suffix, "price": 9.99, "stockQuantity": *stock, "sku": "STRESS-" + suffix,
	}, http.StatusCreated, &item); err != nil {
		logger.Fatal().Err(err).Msg("failed to create shop item")
	}

	// Counters
	var successCount, soldOutCount, failCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			body := map[string]any{
				"customerId": customer.ID,
				"items":      []map[string]any{{"shopItemId": item.ID, "quantity": 1}},
			}
			err := post(client, *addr+"/orders", uuid.NewString(), body, http.StatusCreated, nil)
			var se statusError
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.As(err, &se) && se.code == http.StatusBadRequest:
				soldOutCount.Add(1)
			default:
				failCount.Add(1)
				logger.Warn().Err(err).Msg("order failed")
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	var final struct {
		StockQuantity int `json:"stockQuantity"`
	}
	if err := get(client, fmt.Sprintf("%s/shop-items/%d", *addr, item.ID), &final); err != nil {
		logger.Fatal().Err(err).Msg("failed to read final stock")
	}

	logger.Info().
		Int("requests", *requests).
		Int32("success", successCount.Load()).
		Int32("sold_out", soldOutCount.Load()).
		Int32("errors", failCount.Load()).
		Int("final_stock", final.StockQuantity).
		Dur("elapsed", elapsed).
		Msg("stress test finished")

	expected := min(*stock, *requests)
	if int(successCount.Load()) != expected || final.StockQuantity != *stock-expected {
		logger.Error().Int("expected_success", expected).Msg("FAIL: stock was oversold or undersold")
		os.Exit(1)
	}
	logger.Info().Msg("PASS: no overselling")
}

type statusError struct {
	code int
	body string
}

func (e statusError) Error() string { return fmt.Sprintf("status %d: %s", e.code, e.body) }

func post(client *http.Client, url, idempotencyKey string, body any, want int, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	return send(client, req, want, out)
}

func get(client *http.Client, url string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return send(client, req, http.StatusOK, out)
}

func send(client *http.Client, req *http.Request, want int, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var msg struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&msg)
		return statusError{code: resp.StatusCode, body: msg.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
