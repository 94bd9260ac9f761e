// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"github.com/Anindya-Paul07/Ayurveda/services/llm"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/conversation"
	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/tools"
)

// systemPrompt is the turn-level instruction prepended to every model
// call in the tool loop.
const systemPrompt = `You are a knowledgeable Ayurvedic health assistant with access to various tools.
Your goal is to provide accurate, helpful, and personalized Ayurvedic advice.

Guidelines:
1. Always consider the full conversation context when responding
2. If the user refers to previous messages, acknowledge and address them appropriately
3. Use the available tools when specific information is needed
4. Be concise but thorough in your explanations
5. If you're unsure about something, say so and offer to help find the information
6. Maintain a warm, professional, and culturally sensitive tone
7. Always prioritize user safety and well-being`

// sessionContext is the standing instruction installed into each new
// session's context window. Unlike systemPrompt it survives in the
// window itself, so it rides along even when a transport rebuilds the
// turn from stored context.
const sessionContext = `You are an Ayurvedic health assistant. Your goal is to provide helpful, accurate,
and personalized Ayurvedic advice while maintaining a warm and professional tone.

Guidelines:
- Always prioritize user safety and well-being
- Provide evidence-based Ayurvedic recommendations
- Acknowledge the limitations of your knowledge
- Encourage users to consult qualified healthcare professionals for serious conditions
- Be culturally sensitive and respectful
- Maintain context across multiple messages
- Ask clarifying questions when needed
- Keep responses concise and focused`

// buildMessages converts the conversation window into the model's chat
// form, with the turn instruction first.
func buildMessages(window []conversation.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(window)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, turn := range window {
		messages = append(messages, llm.Message{
			Role:    llm.Role(turn.Role),
			Content: turn.Content,
		})
	}
	return messages
}

// toolDefinitions projects the registry into the model's tool-calling
// schema.
func toolDefinitions(registry *tools.Registry) []llm.ToolDefinition {
	all := registry.All()
	defs := make([]llm.ToolDefinition, 0, len(all))
	for _, tool := range all {
		defs = append(defs, llm.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return defs
}
