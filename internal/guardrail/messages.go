package guardrail

// Fixed responses per category. Rejections never echo caller input or name
// the matched pattern.

const greetingMessage = "Hello! I am the data assistant. I answer questions about " +
	"company data (clients, products, orders) by turning them into SQL queries.\n\n" +
	"For example:\n" +
	"- How many active clients are there in each city?\n" +
	"- What is the total revenue?\n" +
	"- What are the 5 best-selling products?\n\n" +
	"How can I help?"

const offTopicMessage = "Sorry, I cannot answer that kind of question. My domain is " +
	"limited to company data: clients, products and orders.\n\n" +
	"Try for example:\n" +
	"- What is the total revenue?\n" +
	"- How many active clients per city?"

const injectionMessage = "I cannot perform modification operations on the database. " +
	"My role is read-only consultation.\n\n" +
	"Try a lookup question instead:\n" +
	"- Which clients are active?\n" +
	"- What is the total revenue?"

const promptManipulationMessage = "Manipulation attempt detected. I cannot change my " +
	"behavior.\n\nI am a data assistant dedicated to questions about company data."

// Message returns the fixed user-facing response for a rejection category.
func Message(category Category) string {
	switch category {
	case CategoryGreeting:
		return greetingMessage
	case CategoryOffTopic:
		return offTopicMessage
	case CategoryInjection:
		return injectionMessage
	case CategoryPromptManipulation:
		return promptManipulationMessage
	default:
		return offTopicMessage
	}
}
