package tts

import (
	"sort"
	"strings"
)

// VoiceProfile describes one selectable voice, tagged with the provider that
// serves it. Gender is best-effort and may be "unknown".
type VoiceProfile struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Languages []string `json:"languages,omitempty"`
	Gender    string   `json:"gender"`
	Provider  string   `json:"provider"`
}

// presetVoices maps friendly names to ElevenLabs voice IDs.
var presetVoices = map[string]VoiceProfile{
	"rachel":  {ID: "21m00Tcm4TlvDq8ikWAM", Name: "rachel", Gender: "female"},
	"drew":    {ID: "29vD33N1CtxCmqQRPOHJ", Name: "drew", Gender: "male"},
	"clyde":   {ID: "2EiwWnXFnvU5JabPnv8n", Name: "clyde", Gender: "male"},
	"domi":    {ID: "AZnzlk1XvdvUeBnXmlld", Name: "domi", Gender: "female"},
	"dave":    {ID: "CYw3kZ02Hs0563khs1Fj", Name: "dave", Gender: "male"},
	"fin":     {ID: "D38z5RcWu1voky8WS1ja", Name: "fin", Gender: "male"},
	"sarah":   {ID: "EXAVITQu4vr4xnSDxMaL", Name: "sarah", Gender: "female"},
	"adam":    {ID: "pNInz6obpgDQGcFmaJgB", Name: "adam", Gender: "male"},
	"jessica": {ID: "cgSgspJ2msm6clMCkdW9", Name: "jessica", Gender: "female"},
	"chris":   {ID: "iP95p4xoKVk53GoZ742B", Name: "chris", Gender: "male"},
}

// ResolveVoiceID maps a preset name to its provider voice ID. Unknown names
// are passed through unchanged so raw voice IDs keep working.
func ResolveVoiceID(voice string) string {
	if p, ok := presetVoices[strings.ToLower(strings.TrimSpace(voice))]; ok {
		return p.ID
	}
	return voice
}

// PresetVoices returns the cloud preset catalog sorted by name.
func PresetVoices() []VoiceProfile {
	out := make([]VoiceProfile, 0, len(presetVoices))
	for _, p := range presetVoices {
		p.Provider = "elevenlabs"
		p.Languages = []string{"en"}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
