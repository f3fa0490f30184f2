// Package prompts contains all LLM prompt text used by StyleGenie.
//
// Prompt text is Go code rather than config files because it is program
// logic: it benefits from compile-time embedding and can be validated by
// tests. User-facing configuration lives in config.yaml; this package holds
// the instructions we send to models.
//
// Convention: each prompt gets an exported function returning the full
// prompt string, so call sites never touch the raw consts.
package prompts
