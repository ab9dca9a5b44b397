package persona

// Persona describes an interviewer the participant can be matched with.
type Persona struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Title         string   `json:"title"`
	Tone          string   `json:"tone"`
	VoiceID       string   `json:"voiceId,omitempty"`
	Language      string   `json:"language"`
	ScriptVariant string   `json:"scriptVariant"`
	Description   string   `json:"description,omitempty"`
	Focus         []string `json:"focus,omitempty"`
}

// Seed provides the built-in interviewers.
func Seed() []Persona {
	return []Persona{
		{
			ID:            "katrina",
			Name:          "Katrina",
			Title:         "Strict HR mock interviewer",
			Tone:          "brief, direct, encouraging",
			VoiceID:       "en_default",
			Language:      "en-US",
			ScriptVariant: "default",
			Description:   "Runs a short HR screen, lets the candidate do most of the talking and closes with scored feedback.",
			Focus:         []string{"self introduction", "motivation", "projects", "core or IT track"},
		},
		{
			ID:            "katrina-relaxed",
			Name:          "Katrina",
			Title:         "Conversational mock interviewer",
			Tone:          "friendly, conversational",
			VoiceID:       "en_default",
			Language:      "en-US",
			ScriptVariant: "alternate",
			Description:   "Same interview with plainer wording; the candidate may cut in during the introduction.",
			Focus:         []string{"self introduction", "motivation", "projects"},
		},
	}
}
