package ai

import "fmt"

const (
	// notesTranscriptLimit caps the transcript fed into note generation.
	notesTranscriptLimit = 50000

	// contentTranscriptLimit is smaller because flashcard and quiz
	// prompts also carry detailed formatting instructions.
	contentTranscriptLimit = 12000
)

const notesSystemPrompt = "You are an expert educational note-taker. Always return valid JSON objects only, with no additional text."

const contentSystemPrompt = "You are an expert educational content creator. Always return valid JSON only, with no additional text."

func notesPrompt(transcript string) string {
	return fmt.Sprintf(`You are an expert educational note-taker. Analyze the following lecture transcript and create comprehensive study notes.

Transcript:
%s

Create structured notes with:
1. A concise summary (2-3 paragraphs) of the entire lecture
2. 5-10 key points or takeaways
3. Detailed notes organized by topics/sections
4. List of main topics covered
5. Action items or recommended follow-up activities

Return ONLY a valid JSON object with this structure:
{
  "summary": "Comprehensive overview of the lecture...",
  "keyPoints": ["Key point 1", "Key point 2"],
  "detailedNotes": "Detailed notes with sections and explanations...",
  "topics": ["Topic 1", "Topic 2"],
  "actionItems": ["Action 1", "Action 2"]
}`, truncateTranscript(transcript, notesTranscriptLimit))
}

func flashcardsPrompt(transcript string, count int) string {
	return fmt.Sprintf(`You are an educational content creator. Based on the following lecture transcript, create %d flashcards to help students learn and remember the key concepts.

Create a mix of three types of flashcards:
1. "basic" (term/definition): Simple vocabulary or concept definitions
2. "concept" (concept/explanation): Deeper explanations of ideas or processes
3. "qa" (question/answer): Questions that test understanding

Distribute them roughly equally among the three types.

Transcript:
%s

Return ONLY a valid JSON object with this exact structure:
{
  "flashcards": [
    {"type": "basic", "front": "Term or concept", "back": "Definition or explanation"},
    {"type": "concept", "front": "Concept name", "back": "Detailed explanation"},
    {"type": "qa", "front": "Question about the content", "back": "Answer to the question"}
  ]
}

Make sure flashcards cover the most important topics from the lecture comprehensively.`, count, truncateTranscript(transcript, contentTranscriptLimit))
}

func quizPrompt(transcript string, count int) string {
	return fmt.Sprintf(`You are an educational assessment creator. Based on the following lecture transcript, create %d quiz questions to test student understanding.

Create a mix of three question types:
1. "multiple_choice": 4 options, only one correct
2. "true_false": Statement that is either true or false
3. "short_answer": Open-ended question requiring a brief written response

Distribute questions roughly equally among types.

Transcript:
%s

Return ONLY a valid JSON object with this exact structure:
{
  "questions": [
    {"type": "multiple_choice", "question": "What is the main concept?", "options": ["Option A", "Option B", "Option C", "Option D"], "correctAnswer": 0, "explanation": "Brief explanation of why this is correct"},
    {"type": "true_false", "question": "Statement to evaluate", "options": ["True", "False"], "correctAnswer": "True", "explanation": "Why this statement is true/false"},
    {"type": "short_answer", "question": "Explain the concept", "correctAnswer": "Expected answer or key points", "explanation": "What a good answer should include"}
  ]
}

For multiple_choice, correctAnswer must be the option index (0-3).
For true_false, correctAnswer must be "True" or "False".
For short_answer, correctAnswer must be an example of a good answer.

Focus on important concepts and ensure questions test real understanding, not just memorization.`, count, truncateTranscript(transcript, contentTranscriptLimit))
}
