// Seed creates a handful of demo lists with items through the HTTP
// API. Run from project root with the server up: go run ./scripts/seed
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

var demo = map[string][]string{
	"Groceries":     {"Milk", "Eggs", "Bread", "Coffee"},
	"Packing":       {"Passport", "Charger", "Headphones"},
	"Reading queue": {"The Go Programming Language", "Designing Data-Intensive Applications"},
}

func main() {
	base := os.Getenv("SIMPLIST_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	for title, contents := range demo {
		listID, err := createList(base, title)
		if err != nil {
			fmt.Fprintln(os.Stderr, "create list failed:", err)
			os.Exit(1)
		}
		for _, content := range contents {
			if err := addItem(base, listID, content); err != nil {
				fmt.Fprintln(os.Stderr, "add item failed:", err)
				os.Exit(1)
			}
		}
		fmt.Printf("seeded %q: %s/api/lists/%s\n", title, base, listID)
	}
}

func createList(base, title string) (string, error) {
	body, _ := json.Marshal(map[string]string{"title": title})
	resp, err := http.Post(base+"/api/lists", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func addItem(base, listID, content string) error {
	body, _ := json.Marshal(map[string]string{"content": content})
	resp, err := http.Post(base+"/api/lists/"+listID+"/items", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
