package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const (
	baseURL   = "http://localhost:3000/api"
	sessionID = "smoke-test-session"
)

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
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

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{} // No timeout, streaming turns can be slow
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func decode(body []byte) map[string]interface{} {
	var out map[string]interface{}
	json.Unmarshal(body, &out)
	return out
}

func main() {
	color.Cyan("🚀 Starting Tutor Chat API Smoke Test\n")

	// 1. Send a first message (creates a conversation)
	color.Yellow("\n[CHAT] 1. Send first message")
	resp, body, err := sendRequest("POST", "/chat/v1/message", map[string]interface{}{
		"session_id": sessionID,
		"message":    "What is photosynthesis?",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	sendResp := decode(body)
	prettyPrint(sendResp)

	var conversationID string
	if data, ok := sendResp["data"].(map[string]interface{}); ok {
		if id, ok := data["conversation_id"].(string); ok {
			conversationID = id
		}
	}
	if conversationID == "" {
		color.Red("No conversation id in response, aborting")
		os.Exit(1)
	}

	// 2. Session state
	color.Yellow("\n[CHAT] 2. Get session state")
	resp, body, err = sendRequest("GET", "/chat/v1/session/"+sessionID, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(decode(body))

	// 3. Regenerate the reply
	color.Yellow("\n[CHAT] 3. Regenerate last response")
	resp, body, err = sendRequest("POST", "/chat/v1/regenerate", map[string]interface{}{
		"session_id": sessionID,
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(decode(body))

	// 4. Update settings
	color.Yellow("\n[CHAT] 4. Switch persona to concise")
	resp, body, err = sendRequest("PUT", "/chat/v1/settings", map[string]interface{}{
		"session_id": sessionID,
		"persona":    "concise",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(decode(body))

	// 5. List conversations
	color.Yellow("\n[CONVERSATION] 5. List conversations")
	resp, body, err = sendRequest("GET", "/conversation/v1", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(decode(body))

	// 6. Conversation history
	color.Yellow("\n[CONVERSATION] 6. Get history")
	resp, body, err = sendRequest("GET", "/conversation/v1/"+conversationID, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(decode(body))

	// 7. Export as markdown
	color.Yellow("\n[CONVERSATION] 7. Export transcript")
	resp, body, err = sendRequest("GET", "/conversation/v1/"+conversationID+"/export", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(decode(body))

	// 8. Speech synthesis
	color.Yellow("\n[SPEECH] 8. Synthesize short text")
	resp, _, err = sendRequest("POST", "/speech/v1/speak", map[string]interface{}{
		"text":     "Photosynthesis converts sunlight into chemical energy.",
		"language": "en",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s (audio elided)", resp.Status)

	// 9. Start a new conversation
	color.Yellow("\n[CHAT] 9. Start new conversation")
	resp, body, err = sendRequest("POST", "/chat/v1/new", map[string]interface{}{
		"session_id": sessionID,
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(decode(body))

	// 10. Delete the conversation
	color.Yellow("\n[CHAT] 10. Delete conversation")
	resp, body, err = sendRequest("DELETE", "/chat/v1/conversation/"+conversationID+"?session_id="+sessionID, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(decode(body))

	color.Cyan("\n✅ Smoke test finished")
}
