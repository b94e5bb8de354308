package llm

import (
	"sort"
	"strings"

	"github.com/richinex/vlmpilot/internal/dsa"
)

// ModelInfo maps a planner model display name to its API identifier and
// default provider.
type ModelInfo struct {
	DisplayName string
	APIID       string
	Provider    ProviderType
}

// Planner model display names.
const (
	ModelGPT4o           = "gpt-4o"
	ModelGPT4oMini       = "gpt-4o-mini"
	ModelQwen2VLMax      = "qwen2-vl-max"
	ModelQwen2VL2BSSH    = "qwen2-vl-2b (ssh)"
	ModelQwen2VL7BSSH    = "qwen2-vl-7b (ssh)"
	ModelQwen25VL7BSSH   = "qwen2.5-vl-7b (ssh)"
	ModelQwen25VL72BFree = "qwen/qwen2.5-vl-72b-instruct:free"
	ModelClaude35Sonnet  = "claude-3-5-sonnet-20241022"
	ModelGeminiFlash2    = "gemini-2.0-flash"
)

var modelTable = map[string]ModelInfo{
	ModelGPT4o:           {ModelGPT4o, "gpt-4o-2024-11-20", ProviderOpenAI},
	ModelGPT4oMini:       {ModelGPT4oMini, "gpt-4o-mini", ProviderOpenAI},
	ModelQwen2VLMax:      {ModelQwen2VLMax, "qwen2-vl-max", ProviderQwen},
	ModelQwen2VL2BSSH:    {ModelQwen2VL2BSSH, "Qwen2-VL-2B-Instruct", ProviderSSH},
	ModelQwen2VL7BSSH:    {ModelQwen2VL7BSSH, "Qwen2-VL-7B-Instruct", ProviderSSH},
	ModelQwen25VL7BSSH:   {ModelQwen25VL7BSSH, "Qwen2.5-VL-7B-Instruct", ProviderSSH},
	ModelQwen25VL72BFree: {ModelQwen25VL72BFree, ModelQwen25VL72BFree, ProviderOpenRouter},
	ModelClaude35Sonnet:  {ModelClaude35Sonnet, ModelClaude35Sonnet, ProviderAnthropic},
	ModelGeminiFlash2:    {ModelGeminiFlash2, ModelGeminiFlash2, ProviderGemini},
}

// modelIndex holds the table keyed by lower-cased display name.
var modelIndex = func() *dsa.Trie[ModelInfo] {
	t := dsa.NewTrie[ModelInfo]()
	for name, info := range modelTable {
		t.Insert(strings.ToLower(name), info)
	}
	return t
}()

// LookupModel resolves a display name. Unknown names fail with ErrUnsupportedModel.
func LookupModel(displayName string) (ModelInfo, error) {
	info, ok := modelTable[displayName]
	if !ok {
		reason := "not in the model table"
		if similar := SimilarModels(displayName); len(similar) > 0 {
			reason += "; did you mean " + strings.Join(similar, ", ")
		}
		return ModelInfo{}, configError("model", displayName, ErrUnsupportedModel, reason)
	}
	return info, nil
}

// SearchModels returns the models whose display name starts with prefix,
// ignoring case.
func SearchModels(prefix string) []ModelInfo {
	return modelIndex.WithPrefix(strings.ToLower(prefix))
}

// SimilarModels names the models sharing the longest prefix with name.
func SimilarModels(name string) []string {
	var out []string
	for _, info := range modelIndex.Closest(strings.ToLower(name), 3) {
		out = append(out, info.DisplayName)
	}
	return out
}

// Models returns the model table sorted by display name.
func Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(modelTable))
	for _, info := range modelTable {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}
