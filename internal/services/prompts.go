package services

import (
	"fmt"
	"strings"

	"feelance/internal/core"
)

// Prompt templates for the diary and report co-authoring flows. The
// chat prompts put the assistant in the interviewer seat; the generate
// prompts ask for a bare JSON object with fixed keys.

const diaryGeneratePrompt = "You write diary entries on the user's behalf. " +
	"Make the emotional arc vivid, the kind of entry a reader nods along to. " +
	"Using the conversation below, respond with a JSON object whose keys are " +
	`"diary_title" and "diary_body". Return pure JSON with no preamble or ` +
	`explanation. Example: {"diary_title": "Title", "diary_body": "Body"}`

const reportGenerateKeys = "Based on the conversation so far, respond with a " +
	`JSON object whose keys are "report_title" and "report_body". ` +
	"Return pure JSON with no preamble or explanation."

func diaryChatPrompt(tx core.Transaction) string {
	var b strings.Builder
	b.WriteString("You are an assistant helping the user write a diary entry about a spending event.\n")
	b.WriteString("Lead the interview: ask questions that draw out details from the user.\n")
	b.WriteString("The goal is a diary that conveys the user's real feelings about the event, the amount spent and the value received. ")
	b.WriteString("Skip hard facts such as where the item was bought or how it works; focus on the drama of expectation, disappointment or delight, and what the user took away from it.\n")
	b.WriteString("Ask exactly one question per turn, in plain words the user can answer briefly.\n")
	b.WriteString("You are collecting material for a diary title and body. ")
	b.WriteString("Once you have enough, say so. Ask at most seven questions.\n")
	writeEventInfo(&b, tx)
	return b.String()
}

func reportChatPrompt(tx core.Transaction) string {
	var b strings.Builder
	b.WriteString("You are an assistant helping the user write a report about a spending event.\n")
	b.WriteString("Lead the interview: ask questions that draw out details from the user.\n")
	b.WriteString("End every turn with a question and wait for the user's answer before the next one. Do not answer the user's questions; keep steering the conversation.\n")
	b.WriteString("You are collecting material for a report title and body.\n")
	writeEventInfo(&b, tx)
	return b.String()
}

func writeEventInfo(b *strings.Builder, tx core.Transaction) {
	fmt.Fprintf(b, "- date: %s\n", tx.Date)
	fmt.Fprintf(b, "- event: %s\n", tx.Item)
	fmt.Fprintf(b, "- amount: %.0f\n", tx.Amount)
	fmt.Fprintf(b, "- mood: %s\n", core.MoodLabel(tx.MoodScore))
	fmt.Fprintf(b, "- perceived value: %.0f\n", tx.HappyAmount)
}

// conversationText flattens the event info and the transcript into one
// block for the generation request. A trailing assistant turn is
// dropped so the model summarizes the user's answers, not its own
// closing remark.
func conversationText(tx core.Transaction, history []core.ChatMessage) string {
	var b strings.Builder
	b.WriteString("Event:\n")
	writeEventInfo(&b, tx)
	b.WriteString("\nConversation:\n")

	if n := len(history); n > 0 && history[n-1].Role == core.RoleAssistant {
		history = history[:n-1]
	}
	if len(history) == 0 {
		b.WriteString("(no conversation yet)\n")
		return b.String()
	}
	for i, m := range history {
		speaker := "assistant"
		if m.Role == core.RoleUser {
			speaker = "user"
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, speaker, m.Content)
	}
	return b.String()
}
