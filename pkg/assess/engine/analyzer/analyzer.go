// Package analyzer turns one conversation transcript into a structured
// assessment result by invoking the configured AI flow and decoding its
// JSON answer, repairing truncated output when needed.
package analyzer

import (
	"context"
	"errors"

	"github.com/mitchellh/mapstructure"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/engine/retry"
	"github.com/tigerroll/scorin/pkg/assess/support/util/exception"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

const moduleName = "analyzer"

// ItemScore is the per-item score reported by the AI flow.
type ItemScore struct {
	SectionID string  `mapstructure:"sectionId"`
	ItemID    string  `mapstructure:"itemId"`
	Score     float64 `mapstructure:"score"`
	Comment   string  `mapstructure:"comment"`
}

// Result is the decoded assessment response for one conversation.
type Result struct {
	Scores            []ItemScore `mapstructure:"scores"`
	OverallAssessment string      `mapstructure:"overallAssessment"`
	Summary           string      `mapstructure:"summary"`
}

// Analyzer assesses transcripts through an AI invoker under a retry
// policy.
type Analyzer struct {
	invoker port.AIInvoker
	policy  retry.Policy
}

// NewAnalyzer creates an analyzer invoking flows through invoker and
// retrying per policy.
func NewAnalyzer(invoker port.AIInvoker, policy retry.Policy) *Analyzer {
	return &Analyzer{invoker: invoker, policy: policy}
}

// Analyze scores one transcript against the framework. The criteria
// block is prepared once per job by the caller; Analyze assembles the
// prompt, invokes the flow with retries, and decodes the repaired JSON
// response. A nil error guarantees a non-nil result.
func (a *Analyzer) Analyze(ctx context.Context, flowID, criteriaBlock string, transcript port.Transcript) (*Result, error) {
	dialogue := flattenTranscript(transcript)
	if dialogue == "" {
		return nil, exception.NewBatchError(moduleName,
			"transcript contains no assessable text messages", nil, true, false)
	}
	prompt := buildPrompt(criteriaBlock, dialogue)

	var resp *port.AIResponse
	err := retry.Do(ctx, a.policy, func() error {
		var invokeErr error
		resp, invokeErr = a.invoker.Invoke(ctx, flowID, port.AIInput{Text: prompt})
		if invokeErr != nil {
			logger.Warnf("AI invocation failed for conversation %s: %v", transcript.ConversationID, invokeErr)
		}
		return invokeErr
	})
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "AI invocation failed", err, true, false)
	}

	payload, err := RepairJSON(responseText(resp))
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "AI response is not valid JSON", err, true, false)
	}

	result, err := decodeResult(payload)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "AI response shape is invalid", err, true, false)
	}
	return result, nil
}

// decodeResult maps the parsed response payload into a Result. Decoding
// is weakly typed: providers occasionally return scores as strings.
func decodeResult(payload map[string]interface{}) (*Result, error) {
	var result Result
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &result,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, err
	}
	return &result, nil
}

// ResolveFlowID determines the AI flow a job invokes: the account's
// configured setting first, the system default second. A job without
// either cannot run.
func ResolveFlowID(ctx context.Context, settings port.SettingsStore, accountID, settingName, defaultFlowID string) (string, error) {
	flowID, err := settings.GetSetting(ctx, accountID, settingName)
	if err == nil && flowID != "" {
		return flowID, nil
	}
	if err != nil && !errors.Is(err, port.ErrSettingNotFound) {
		return "", exception.NewBatchError(moduleName, "failed to read AI flow setting", err, false, false)
	}
	if defaultFlowID != "" {
		logger.Debugf("Account %s has no '%s' setting; using the default flow.", accountID, settingName)
		return defaultFlowID, nil
	}
	return "", exception.NewBatchErrorf(moduleName,
		"no AI flow configured for account %s (setting '%s' absent and no default)", accountID, settingName)
}

// CriteriaBlock renders the reusable criteria portion of the prompt for
// a framework.
func CriteriaBlock(framework *model.Framework) string {
	return buildCriteriaBlock(framework)
}
