// Package validate defines the validation capability run before a publish.
// Validators are opaque, order-stable plugins; every validator runs even
// when earlier ones fail so the user sees the full picture.
package validate

import (
	"context"
	"fmt"

	"github.com/j0nc0x/hdamanager/internal/definition"
	"github.com/j0nc0x/hdamanager/internal/nodetype"
	"github.com/j0nc0x/hdamanager/internal/version"
)

// Candidate is the definition being validated, together with the session
// facts validators commonly need. Validators must never mutate it.
type Candidate struct {
	// Name is the configured candidate node type name.
	Name nodetype.Name
	// Path is the editable definition file.
	Path string
	// File is the parsed editable definition.
	File *definition.File
	// Namespaces are the namespaces currently recognized by the manager.
	Namespaces []string
	// LatestPublished is the highest published version of this node type,
	// nil when publishing a brand-new node type.
	LatestPublished *version.Version
}

// Result is one validator's verdict.
type Result struct {
	Validator string
	Passed    bool
	Messages  []string
}

// Report aggregates all validator results for one run.
type Report struct {
	Results []Result
}

// Pass reports whether every validator passed.
func (r *Report) Pass() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failures returns the failing results.
func (r *Report) Failures() []Result {
	var failures []Result
	for _, res := range r.Results {
		if !res.Passed {
			failures = append(failures, res)
		}
	}
	return failures
}

// Validator checks one aspect of a publish candidate.
type Validator interface {
	Name() string
	Check(ctx context.Context, c *Candidate) Result
}

// Run executes every validator in order and collects all results.
// It never stops early on failure.
func Run(ctx context.Context, validators []Validator, c *Candidate) *Report {
	report := &Report{}
	for _, v := range validators {
		report.Results = append(report.Results, v.Check(ctx, c))
	}
	return report
}

// Namespace validates that the candidate namespace is one the manager
// recognizes.
type Namespace struct{}

func (Namespace) Name() string { return "namespace" }

func (Namespace) Check(ctx context.Context, c *Candidate) Result {
	for _, ns := range c.Namespaces {
		if ns == c.Name.Namespace {
			return Result{Validator: "namespace", Passed: true}
		}
	}
	return Result{
		Validator: "namespace",
		Messages: []string{fmt.Sprintf("%s is an invalid namespace, should be one of %v",
			c.Name.Namespace, c.Namespaces)},
	}
}

// IsLatestVersion validates that the candidate version matches or exceeds
// the latest published version, so a publish never silently regresses.
type IsLatestVersion struct{}

func (IsLatestVersion) Name() string { return "is-latest-version" }

func (IsLatestVersion) Check(ctx context.Context, c *Candidate) Result {
	if c.LatestPublished == nil || !c.Name.Version.Less(*c.LatestPublished) {
		return Result{Validator: "is-latest-version", Passed: true}
	}
	return Result{
		Validator: "is-latest-version",
		Messages: []string{fmt.Sprintf(
			"%s is not the latest version: match or exceed %s before publishing",
			c.Name, c.LatestPublished)},
	}
}

// Func adapts a plain function into a Validator, for configuration-supplied
// plugins.
type Func struct {
	ValidatorName string
	CheckFunc     func(ctx context.Context, c *Candidate) (bool, []string)
}

func (f Func) Name() string { return f.ValidatorName }

func (f Func) Check(ctx context.Context, c *Candidate) Result {
	passed, messages := f.CheckFunc(ctx, c)
	return Result{Validator: f.ValidatorName, Passed: passed, Messages: messages}
}
