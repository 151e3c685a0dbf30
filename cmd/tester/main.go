package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/Valbows/NewDomo-sub006/internal/model"
)

// delivery is one webhook POST to send at the target instance.
type delivery struct {
	name      string
	payload   []byte
	tamperSig bool
}

func main() {
	target := flag.String("url", "http://localhost:8080/webhook", "Webhook endpoint URL")
	secret := flag.String("secret", "", "HMAC secret, must match the target's webhook.secret")
	conversationID := flag.String("conversation", "", "Conversation id to use, random when empty")
	demoID := flag.String("demo", "", "Demo id carried in the conversation_started event")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Webhook Event Tester\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Posts signed sample events for every event family at a running instance,\n")
		fmt.Fprintf(os.Stderr, "including a duplicate delivery and a tampered signature.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "a -secret is required to sign deliveries")
		os.Exit(1)
	}

	convID := *conversationID
	if convID == "" {
		convID = "conv-" + gofakeit.UUID()
	}
	dID := *demoID
	if dID == "" {
		dID = "demo-" + gofakeit.UUID()
	}

	started := model.MarshalPayload(map[string]interface{}{
		"event_type":      "system.conversation_started",
		"conversation_id": convID,
		"properties":      map[string]interface{}{"demo_id": dID},
	})
	qualification := model.MarshalPayload(model.NewQualificationEventPayload(convID))
	productInterest := model.MarshalPayload(model.NewProductInterestEventPayload(convID))
	videoTool := model.MarshalPayload(model.NewVideoToolCallPayload(convID, "Onboarding Walkthrough", "Pricing Overview"))
	ctaShown := model.MarshalPayload(model.NewCtaToolCallPayload(convID, model.ToolShowCta))
	ctaClicked := model.MarshalPayload(model.NewCtaToolCallPayload(convID, model.ToolCtaClicked))
	transcript := model.MarshalPayload(model.NewTranscriptionReadyPayload(convID))
	ended := model.MarshalPayload(map[string]interface{}{
		"event_type":      "system.conversation_ended",
		"conversation_id": convID,
		"properties":      map[string]interface{}{"duration": 287},
	})

	deliveries := []delivery{
		{name: "conversation_started", payload: started},
		{name: "qualification", payload: qualification},
		{name: "product_interest", payload: productInterest},
		{name: "video_tool_call", payload: videoTool},
		{name: "video_tool_call (duplicate)", payload: videoTool},
		{name: "cta_shown", payload: ctaShown},
		{name: "cta_clicked", payload: ctaClicked},
		{name: "transcription_ready", payload: transcript},
		{name: "conversation_ended", payload: ended},
		{name: "tampered signature", payload: qualification, tamperSig: true},
	}

	client := &http.Client{Timeout: 10 * time.Second}
	fmt.Printf("Posting %d deliveries for conversation %s\n\n", len(deliveries), convID)

	failures := 0
	for _, d := range deliveries {
		status, body, err := post(client, *target, *secret, d)
		if err != nil {
			fmt.Printf("%-28s ERROR %v\n", d.name, err)
			failures++
			continue
		}

		expected := http.StatusOK
		if d.tamperSig {
			expected = http.StatusUnauthorized
		}
		marker := "ok"
		if status != expected {
			marker = fmt.Sprintf("UNEXPECTED (want %d)", expected)
			failures++
		}
		fmt.Printf("%-28s %d %s %s\n", d.name, status, marker, body)
	}

	if failures > 0 {
		fmt.Printf("\n%d deliveries did not behave as expected\n", failures)
		os.Exit(1)
	}
	fmt.Println("\nAll deliveries behaved as expected")
}

func post(client *http.Client, target, secret string, d delivery) (int, string, error) {
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(d.payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	sig := signBody(secret, d.payload)
	if d.tamperSig {
		sig = signBody(secret+"-wrong", d.payload)
	}
	req.Header.Set("X-Webhook-Signature", sig)

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(bytes.TrimSpace(body)), nil
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
