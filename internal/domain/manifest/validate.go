package manifest

import (
	"fmt"
	"regexp"
)

// hostRe matches a bare hostname, optionally with a port. Schemes, paths and
// wildcards are rejected outright.
var hostRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*(:\d{1,5})?$`)

// Validate runs schema checks and, only once those pass, business-rule
// checks. Errors always block publish; warnings never do.
func Validate(m *Manifest) Result {
	var errs, warns []Issue

	if m == nil {
		return Result{Valid: false, Errors: []Issue{{Path: "", Message: "manifest is required", Code: CodeRequired}}}
	}

	errs = append(errs, schemaIssues(m)...)
	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}

	policyErrs, policyWarns := policyIssues(m)
	errs = append(errs, policyErrs...)
	warns = append(warns, policyWarns...)

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs, Warnings: warns}
	}
	return Result{Valid: true, Warnings: warns}
}

// schemaIssues checks structure: one issue per violation, dotted paths.
func schemaIssues(m *Manifest) []Issue {
	var errs []Issue

	if m.Version == "" {
		errs = append(errs, Issue{Path: "version", Message: "version is required", Code: CodeRequired})
	} else if m.Version != Version {
		errs = append(errs, Issue{
			Path:    "version",
			Message: fmt.Sprintf("unsupported manifest version %q (expected %q)", m.Version, Version),
			Code:    CodeUnsupportedVersion,
		})
	}

	if m.Runner == "" {
		errs = append(errs, Issue{Path: "runner", Message: "runner is required", Code: CodeRequired})
	} else if !m.Runner.Valid() {
		errs = append(errs, Issue{
			Path:    "runner",
			Message: fmt.Sprintf("unknown runner %q", m.Runner),
			Code:    CodeInvalidValue,
		})
	}

	if m.Entry == "" {
		errs = append(errs, Issue{Path: "entry", Message: "entry is required", Code: CodeRequired})
	}

	if len(m.Params) > MaxParams {
		errs = append(errs, Issue{
			Path:    "params",
			Message: fmt.Sprintf("too many params: %d (maximum %d)", len(m.Params), MaxParams),
			Code:    CodeTooMany,
		})
	}

	for i := range m.Params {
		errs = append(errs, paramSchemaIssues(&m.Params[i], i)...)
	}

	if len(m.Capabilities.Net) > MaxNetHosts {
		errs = append(errs, Issue{
			Path:    "capabilities.net",
			Message: fmt.Sprintf("too many hosts: %d (maximum %d)", len(m.Capabilities.Net), MaxNetHosts),
			Code:    CodeTooMany,
		})
	}
	for i, host := range m.Capabilities.Net {
		if !hostRe.MatchString(host) {
			errs = append(errs, Issue{
				Path:    fmt.Sprintf("capabilities.net.%d", i),
				Message: fmt.Sprintf("malformed host %q", host),
				Code:    CodeMalformedHost,
			})
		}
	}

	return errs
}

func paramSchemaIssues(p *Param, index int) []Issue {
	var errs []Issue
	base := paramPath(p, index)

	if p.Name == "" {
		errs = append(errs, Issue{Path: base + ".name", Message: "param name is required", Code: CodeRequired})
	}
	if !p.Type.Valid() {
		errs = append(errs, Issue{
			Path:    base + ".type",
			Message: fmt.Sprintf("unknown param type %q", p.Type),
			Code:    CodeInvalidValue,
		})
		return errs
	}

	switch p.Type {
	case ParamSlider, ParamNumber:
		if p.Min == nil {
			errs = append(errs, Issue{Path: base + ".min", Message: string(p.Type) + " param requires min", Code: CodeRequired})
		}
		if p.Max == nil {
			errs = append(errs, Issue{Path: base + ".max", Message: string(p.Type) + " param requires max", Code: CodeRequired})
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			errs = append(errs, Issue{Path: base + ".min", Message: "min exceeds max", Code: CodeInvalidValue})
		}
	case ParamSelect:
		if len(p.Options) == 0 {
			errs = append(errs, Issue{Path: base + ".options", Message: "select param requires options", Code: CodeRequired})
		}
	}

	return errs
}

// policyIssues runs business rules. Only called after schema success.
func policyIssues(m *Manifest) (errs, warns []Issue) {
	if size := totalBundleSize(m); size > MaxBundleBytes {
		errs = append(errs, Issue{
			Path:      "bundleSize",
			Message:   fmt.Sprintf("bundle size %d exceeds maximum %d bytes", size, MaxBundleBytes),
			Code:      CodeInvalidValue,
			ErrorCode: ErrBundleTooLarge,
		})
	}

	// Network capability is globally disabled pending a premium tier.
	if len(m.Capabilities.Net) > 0 {
		errs = append(errs, Issue{
			Path:      "capabilities.net",
			Message:   "network capability is not available on any plan yet",
			Code:      CodeInvalidValue,
			ErrorCode: ErrNetDisabled,
		})
	}

	if m.Runner == RunnerWorkerEdge && m.EdgeWorker == nil {
		errs = append(errs, Issue{
			Path:      "edgeWorker",
			Message:   "worker-edge runner requires edgeWorker configuration",
			Code:      CodeRequired,
			ErrorCode: ErrEdgeConfigMissing,
		})
	}

	for i := range m.Params {
		warns = append(warns, paramDefaultWarnings(&m.Params[i], i)...)
	}

	if m.License == "" {
		warns = append(warns, Issue{
			Path:      "license",
			Message:   "no license declared; capsule will publish as all-rights-reserved",
			ErrorCode: WarnMissingLicense,
		})
	}

	if m.EdgeWorker != nil && len(m.EdgeWorker.Bindings) > MaxEdgeBindings {
		warns = append(warns, Issue{
			Path:      "edgeWorker.bindings",
			Message:   fmt.Sprintf("%d bindings declared; more than %d slows cold starts", len(m.EdgeWorker.Bindings), MaxEdgeBindings),
			ErrorCode: WarnExcessBindings,
		})
	}

	if m.Live != nil && m.Live.MaxSessionMinutes > MaxLiveMinutes {
		warns = append(warns, Issue{
			Path:      "live.maxSessionMinutes",
			Message:   fmt.Sprintf("live session budget %d minutes exceeds the soft ceiling of %d", m.Live.MaxSessionMinutes, MaxLiveMinutes),
			ErrorCode: WarnLiveBudget,
		})
	}

	return errs, warns
}

func paramDefaultWarnings(p *Param, index int) []Issue {
	var warns []Issue
	base := paramPath(p, index)

	switch p.Type {
	case ParamSlider, ParamNumber:
		def, ok := numericDefault(p.Default)
		if !ok {
			return nil
		}
		if (p.Min != nil && def < *p.Min) || (p.Max != nil && def > *p.Max) {
			warns = append(warns, Issue{
				Path:      base + ".default",
				Message:   fmt.Sprintf("default %v is outside declared bounds", p.Default),
				ErrorCode: WarnDefaultOutOfRange,
			})
		}
	case ParamSelect:
		def, ok := p.Default.(string)
		if !ok || def == "" {
			return nil
		}
		for _, opt := range p.Options {
			if opt.Value == def {
				return nil
			}
		}
		warns = append(warns, Issue{
			Path:      base + ".default",
			Message:   fmt.Sprintf("default %q is not among declared options", def),
			ErrorCode: WarnDefaultOutOfRange,
		})
	}

	return warns
}

func paramPath(p *Param, index int) string {
	if p.Name != "" {
		return "params." + p.Name
	}
	return fmt.Sprintf("params.%d", index)
}

func totalBundleSize(m *Manifest) int64 {
	size := m.BundleSize
	for _, a := range m.Assets {
		size += a.Size
	}
	return size
}

func numericDefault(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
