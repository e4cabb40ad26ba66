// Package compiler turns arbitrary author-submitted markup into a safe,
// servable artifact. The pipeline is scan-based on purpose: it neutralizes a
// known attack surface (script injection, active content, dangerous URIs,
// CSS exfiltration vectors) without attempting browser-grade parsing, and it
// fails closed whenever it cannot safely interpret a structural risk.
package compiler

import (
	"fmt"
	"strings"
)

// Rejection codes.
const (
	ErrEmptyInput   = "empty_input"
	ErrSizeExceeded = "size_exceeded"
	ErrScriptTag    = "script_tag"
)

// RootContainerID is the stable id of the element wrapping body content.
// Host-side mount logic keys on it.
const RootContainerID = "capsule-root"

// DefaultBaseHref pins relative resource resolution when the caller does not
// supply a sandbox origin.
const DefaultBaseHref = "https://sandbox.capsulehq.dev/"

// Options configures one compile run.
type Options struct {
	// MaxBytes is the plan-specific size ceiling supplied by the quota
	// collaborator. Zero means no ceiling.
	MaxBytes int
	// BaseHref is the sandbox origin injected as the document base.
	BaseHref string
}

// Result is the outcome of one compile. Success carries the sanitized markup
// plus one human-readable warning per alteration; rejection carries a
// machine-readable code and never partial output.
type Result struct {
	OK        bool                   `json:"ok"`
	HTML      string                 `json:"html,omitempty"`
	Warnings  []string               `json:"warnings,omitempty"`
	ErrorCode string                 `json:"errorCode,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Compile sanitizes raw markup. Stages are pure and order-significant;
// compiling already-sanitized output again yields byte-identical markup and
// zero warnings.
func Compile(html string, opts Options) Result {
	if opts.BaseHref == "" {
		opts.BaseHref = DefaultBaseHref
	}

	if strings.TrimSpace(html) == "" {
		return reject(ErrEmptyInput, "input is empty", nil)
	}

	if opts.MaxBytes > 0 && len(html) > opts.MaxBytes {
		return reject(ErrSizeExceeded,
			fmt.Sprintf("input is %d bytes, limit is %d", len(html), opts.MaxBytes),
			map[string]interface{}{"size": len(html), "limit": opts.MaxBytes})
	}

	// Blanket policy: no script allowlist exists, so any occurrence is a
	// hard rejection rather than a strip.
	if strings.Contains(strings.ToLower(html), "<script") {
		return reject(ErrScriptTag, "script tags are not allowed in capsule markup", nil)
	}

	var warnings []string
	out := html
	out = stripEventHandlers(out, &warnings)
	out = stripContainers(out, opts.BaseHref, &warnings)
	out = neutralizeURIAttrs(out, &warnings)
	out = filterLinks(out, &warnings)
	out = filterMeta(out, &warnings)
	out = sanitizeStyles(out, &warnings)
	out = ensureBase(out, opts.BaseHref)
	out = wrapBody(out)

	return Result{OK: true, HTML: out, Warnings: warnings}
}

func reject(code, message string, details map[string]interface{}) Result {
	return Result{OK: false, ErrorCode: code, Message: message, Details: details}
}
