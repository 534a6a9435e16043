// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cognito-authorizer.
//
// go-cognito-authorizer is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jeremyhahn/go-cognito-authorizer/internal/config"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/authorizer"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/jwks"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/policy"
	"gopkg.in/yaml.v3"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(strings.ToLower(format)),
		writer: writer,
	}
}

type decisionView struct {
	Effect    string          `json:"effect" yaml:"effect"`
	Reason    string          `json:"reason,omitempty" yaml:"reason,omitempty"`
	Detail    string          `json:"detail,omitempty" yaml:"detail,omitempty"`
	Principal string          `json:"principal,omitempty" yaml:"principal,omitempty"`
	Response  policy.Response `json:"response" yaml:"response"`
}

// PrintDecision prints an authorization decision and its policy document.
// Unlike the Lambda response, the denial reason and detail are included.
func (p *Printer) PrintDecision(d authorizer.Decision) error {
	view := decisionView{
		Effect:    d.Effect.String(),
		Reason:    d.Reason.String(),
		Principal: d.Principal,
		Response:  d.Response,
	}
	if d.Err != nil {
		view.Detail = d.Err.Error()
	}

	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(view)
	case OutputFormatYAML:
		return p.printYAML(view)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Effect:    %s\n", view.Effect)
		if view.Principal != "" {
			fmt.Fprintf(p.writer, "Principal: %s\n", view.Principal)
		}
		if view.Reason != "" {
			fmt.Fprintf(p.writer, "Reason:    %s\n", view.Reason)
		}
		if view.Detail != "" {
			fmt.Fprintf(p.writer, "Detail:    %s\n", view.Detail)
		}
		doc, err := json.MarshalIndent(view.Response, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(p.writer, "Policy:\n  %s\n", doc)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

type keyView struct {
	KeyID      string `json:"kid" yaml:"kid"`
	Algorithm  string `json:"alg,omitempty" yaml:"alg,omitempty"`
	Type       string `json:"kty" yaml:"kty"`
	Use        string `json:"use,omitempty" yaml:"use,omitempty"`
	Thumbprint string `json:"thumbprint" yaml:"thumbprint"`
}

// PrintKeys prints signing keys
func (p *Printer) PrintKeys(keys []*jwks.SigningKey) error {
	views := make([]keyView, 0, len(keys))
	for _, k := range keys {
		view := keyView{
			KeyID:      k.KeyID,
			Algorithm:  k.Algorithm,
			Use:        k.Use,
			Thumbprint: k.Thumbprint(),
		}
		if encoded, err := jwk.FromPublicKey(k.Key); err == nil {
			view.Type = string(encoded.Kty)
		}
		views = append(views, view)
	}

	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{"keys": views})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{"keys": views})
	case OutputFormatText:
		if len(views) == 0 {
			fmt.Fprintln(p.writer, "No keys found")
			return nil
		}
		fmt.Fprintf(p.writer, "%-44s %-6s %-4s %-4s %s\n", "KID", "ALG", "KTY", "USE", "THUMBPRINT")
		fmt.Fprintln(p.writer, strings.Repeat("-", 110))
		for _, v := range views {
			fmt.Fprintf(p.writer, "%-44s %-6s %-4s %-4s %s\n",
				v.KeyID, dash(v.Algorithm), v.Type, dash(v.Use), v.Thumbprint)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

type configView struct {
	Region           string `json:"region" yaml:"region"`
	AccountID        string `json:"account_id" yaml:"account_id"`
	APIID            string `json:"api_id" yaml:"api_id"`
	UserPoolID       string `json:"user_pool_id" yaml:"user_pool_id"`
	AppClientID      string `json:"app_client_id" yaml:"app_client_id"`
	Issuer           string `json:"issuer" yaml:"issuer"`
	Resource         string `json:"resource" yaml:"resource"`
	JWKSURL          string `json:"jwks_url,omitempty" yaml:"jwks_url,omitempty"`
	JWKSFile         string `json:"jwks_file,omitempty" yaml:"jwks_file,omitempty"`
	CacheTTL         string `json:"jwks_cache_ttl" yaml:"jwks_cache_ttl"`
	FetchTimeout     string `json:"jwks_fetch_timeout" yaml:"jwks_fetch_timeout"`
	RefreshRateLimit string `json:"jwks_refresh_rate_limit" yaml:"jwks_refresh_rate_limit"`
	LogFormat        string `json:"log_format" yaml:"log_format"`
	Verbose          bool   `json:"verbose" yaml:"verbose"`
	Listen           string `json:"listen" yaml:"listen"`
	TLS              bool   `json:"tls" yaml:"tls"`
	RateLimitRPM     int    `json:"rate_limit_rpm,omitempty" yaml:"rate_limit_rpm,omitempty"`
}

// PrintConfig prints a validated configuration with its derived values
func (p *Printer) PrintConfig(c *config.Config) error {
	resource, err := c.ResourceARN()
	if err != nil {
		return err
	}
	view := configView{
		Region:           c.Region,
		AccountID:        c.AccountID,
		APIID:            c.APIID,
		UserPoolID:       c.UserPoolID,
		AppClientID:      c.AppClientID,
		Issuer:           c.IssuerURL(),
		Resource:         resource,
		JWKSFile:         c.JWKS.File,
		CacheTTL:         c.JWKS.CacheTTL.String(),
		FetchTimeout:     c.JWKS.FetchTimeout.String(),
		RefreshRateLimit: c.JWKS.RefreshRateLimit.String(),
		LogFormat:        c.LogFormat,
		Verbose:          c.Verbose,
		Listen:           c.Server.Listen,
		TLS:              c.Server.TLS.Enabled(),
		RateLimitRPM:     c.Server.RateLimit.RequestsPerMinute,
	}
	if view.JWKSFile == "" {
		view.JWKSURL = c.JWKSURL()
	}

	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(view)
	case OutputFormatYAML:
		return p.printYAML(view)
	case OutputFormatText:
		fmt.Fprintln(p.writer, "Configuration is valid")
		fmt.Fprintf(p.writer, "  Region:          %s\n", view.Region)
		fmt.Fprintf(p.writer, "  Account:         %s\n", view.AccountID)
		fmt.Fprintf(p.writer, "  API:             %s\n", view.APIID)
		fmt.Fprintf(p.writer, "  User pool:       %s\n", view.UserPoolID)
		fmt.Fprintf(p.writer, "  App client:      %s\n", view.AppClientID)
		fmt.Fprintf(p.writer, "  Issuer:          %s\n", view.Issuer)
		fmt.Fprintf(p.writer, "  Resource:        %s\n", view.Resource)
		if view.JWKSFile != "" {
			fmt.Fprintf(p.writer, "  Key set file:    %s\n", view.JWKSFile)
		} else {
			fmt.Fprintf(p.writer, "  Key set URL:     %s\n", view.JWKSURL)
		}
		fmt.Fprintf(p.writer, "  Cache TTL:       %s\n", view.CacheTTL)
		fmt.Fprintf(p.writer, "  Fetch timeout:   %s\n", view.FetchTimeout)
		fmt.Fprintf(p.writer, "  Refresh limit:   %s\n", view.RefreshRateLimit)
		fmt.Fprintf(p.writer, "  Log format:      %s\n", view.LogFormat)
		fmt.Fprintf(p.writer, "  Verbose:         %t\n", view.Verbose)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintVersion prints version information
func (p *Printer) PrintVersion(v VersionInfo) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(v)
	case OutputFormatYAML:
		return p.printYAML(v)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "authorizer version %s\n", v.Version)
		fmt.Fprintf(p.writer, "Git commit: %s\n", v.Commit)
		fmt.Fprintf(p.writer, "Build date: %s\n", v.BuildDate)
		fmt.Fprintf(p.writer, "Go version: %s\n", v.GoVersion)
		fmt.Fprintf(p.writer, "OS/Arch: %s/%s\n", v.OS, v.Arch)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// printJSON prints data as JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// printYAML prints data as YAML
func (p *Printer) printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(p.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
