package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

// voicectl is a smoke-test client for a running voicepilot server.
//
//	voicectl ingest <doc-id> <file>  upload a document into the knowledge base
//	voicectl query <text>            search the knowledge base directly
//	voicectl talk <transcript>...    start a session, send transcripts, end it
//	voicectl stats                   print knowledge base stats
//
// VOICEPILOT_URL and VOICEPILOT_TOKEN configure target and auth.

func baseURL() string {
	if v := os.Getenv("VOICEPILOT_URL"); v != "" {
		return v
	}
	return "http://localhost:3000/api"
}

func token() string {
	return os.Getenv("VOICEPILOT_TOKEN")
}

// Pretty print JSON helper
func prettyPrint(body []byte) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL()+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token() != "" {
		req.Header.Set("Authorization", "Bearer "+token())
	}

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func mustOK(resp *http.Response, body []byte, err error) []byte {
	if err != nil {
		color.Red("Request failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 300 {
		color.Red("Status: %s", resp.Status)
		prettyPrint(body)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	return body
}

func cmdIngest(args []string) {
	if len(args) < 2 {
		color.Red("usage: voicectl ingest <doc-id> <file>")
		os.Exit(2)
	}
	content, err := os.ReadFile(args[1])
	if err != nil {
		color.Red("Cannot read %s: %v", args[1], err)
		os.Exit(1)
	}
	color.Yellow("\n[KNOWLEDGE] Ingest %q (%d bytes)", args[0], len(content))
	resp, body, err := sendRequest("POST", "/knowledge/v1/documents", map[string]interface{}{
		"document_id": args[0],
		"content":     string(content),
		"source":      "upload",
	})
	prettyPrint(mustOK(resp, body, err))
}

func cmdQuery(args []string) {
	if len(args) < 1 {
		color.Red("usage: voicectl query <text>")
		os.Exit(2)
	}
	color.Yellow("\n[KNOWLEDGE] Query %q", args[0])
	resp, body, err := sendRequest("POST", "/knowledge/v1/query", map[string]interface{}{
		"query": args[0],
	})
	prettyPrint(mustOK(resp, body, err))
}

func cmdStats() {
	color.Yellow("\n[KNOWLEDGE] Stats")
	resp, body, err := sendRequest("GET", "/knowledge/v1/stats", nil)
	prettyPrint(mustOK(resp, body, err))
}

func cmdTalk(args []string) {
	if len(args) < 1 {
		color.Red("usage: voicectl talk <transcript> [<transcript>...]")
		os.Exit(2)
	}

	color.Yellow("\n[SESSION] Start")
	resp, body, err := sendRequest("POST", "/session/v1", map[string]interface{}{
		"session_id":        fmt.Sprintf("voicectl-%d", time.Now().UnixNano()),
		"conversation_mode": "SINGLE_SPEAKER",
	})
	body = mustOK(resp, body, err)

	var startResp struct {
		Data struct {
			SessionId string `json:"session_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &startResp); err != nil || startResp.Data.SessionId == "" {
		color.Red("No session id in response")
		prettyPrint(body)
		os.Exit(1)
	}
	sessionId := startResp.Data.SessionId
	color.Cyan("Session: %s", sessionId)

	for _, transcript := range args {
		color.Yellow("\nUSER: %s", transcript)
		start := time.Now()
		resp, body, err := sendRequest("POST", "/session/v1/"+sessionId+"/input", map[string]interface{}{
			"transcript": transcript,
		})
		elapsed := time.Since(start)
		body = mustOK(resp, body, err)

		var inputResp struct {
			Data struct {
				ResponseText string `json:"response_text"`
				ResponseType string `json:"response_type"`
			} `json:"data"`
		}
		json.Unmarshal(body, &inputResp)
		color.Cyan("AI [%s] (%v): %s", inputResp.Data.ResponseType, elapsed, inputResp.Data.ResponseText)
	}

	color.Yellow("\n[SESSION] End")
	resp, body, err = sendRequest("DELETE", "/session/v1/"+sessionId, nil)
	prettyPrint(mustOK(resp, body, err))
}

func main() {
	if len(os.Args) < 2 {
		color.Cyan("voicectl — voicepilot smoke-test client")
		fmt.Println("commands: ingest, query, talk, stats")
		os.Exit(2)
	}

	switch os.Args[1] {
	case "ingest":
		cmdIngest(os.Args[2:])
	case "query":
		cmdQuery(os.Args[2:])
	case "talk":
		cmdTalk(os.Args[2:])
	case "stats":
		cmdStats()
	default:
		color.Red("unknown command %q", os.Args[1])
		os.Exit(2)
	}
}
