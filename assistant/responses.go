package assistant

import "math/rand"

var greetings = []string{
	"Hello! How can I help you?",
	"Hi there! What can I do for you?",
	"Hey! What's on your mind?",
	"Hello! I'm here to help.",
}

var farewells = []string{
	"Goodbye! It was nice talking with you.",
	"See you later! Have a great day.",
	"Goodbye! Feel free to talk to me anytime.",
	"Take care! I'll be here when you need me.",
}

var apologies = []string{
	"I'm having trouble processing that right now.",
	"Sorry, I encountered an issue. Please try again.",
	"I need a moment to think about that.",
	"Let me try that again in a moment.",
	"I'm experiencing some difficulty. Could you rephrase that?",
}

const refusal = "I can't help with that request."

const quotaNotice = "I've reached my usage limit for now. Please try again later."

const resourceNotice = "The system is low on resources. Please try again in a bit."

func pick(options []string) string {
	return options[rand.Intn(len(options))]
}
