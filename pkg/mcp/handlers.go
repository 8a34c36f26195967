package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/propgen/pkg/locator"
	"github.com/gnana997/propgen/pkg/proptype"
	"github.com/gnana997/propgen/pkg/report"
	"github.com/gnana997/propgen/pkg/scanner"
)

type schemaResult struct {
	Path         string         `json:"path"`
	Components   []string       `json:"components"`
	Import       string         `json:"import,omitempty"`
	Schema       string         `json:"schema,omitempty"`
	Skipped      []locator.Skip `json:"skipped,omitempty"`
	SyntaxErrors bool           `json:"syntaxErrors,omitempty"`
}

func (s *Server) handleGenerateSchema(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var src []byte
	if text := req.GetString("source", ""); text != "" {
		src = []byte(text)
	} else if src, err = os.ReadFile(path); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read %s: %v", path, err)), nil
	}

	disc, err := s.gen.Scanner().LocateSource(path, src)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to locate components: %v", err)), nil
	}

	comps := scanner.UnitResult{Path: path, Discovery: disc}.Emittable()
	out := schemaResult{
		Path:         path,
		Components:   make([]string, 0, len(comps)),
		Skipped:      disc.Skipped,
		SyntaxErrors: disc.SyntaxErrors,
	}
	for _, c := range comps {
		out.Components = append(out.Components, c.Name)
	}
	if len(comps) > 0 {
		em := s.gen.Emitter()
		out.Import = em.ImportLine()
		out.Schema = em.EmitUnit("", comps)
	}
	return jsonResult(out)
}

func (s *Server) handleListComponents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	keyword := req.GetString("keyword", "")

	info, err := os.Stat(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("path not found: %s", path)), nil
	}

	sc := s.gen.Scanner()
	var res *scanner.Result
	if info.IsDir() {
		res, err = sc.Run(ctx, path)
	} else {
		abs, aerr := filepath.Abs(path)
		if aerr != nil {
			return mcp.NewToolResultError(aerr.Error()), nil
		}
		res, err = sc.LocateFiles(ctx, []string{abs})
		if res != nil {
			res.Root = filepath.Dir(abs)
		}
	}
	if err != nil && !errors.Is(err, scanner.ErrAllUnitsFailed) {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r := report.Build(res, nil, s.gen.Emitter(), s.version)
	if keyword != "" {
		r.Units = filterUnits(r, keyword)
	}
	return jsonResult(r)
}

// filterUnits keeps the components matching keyword, dropping units left
// without any.
func filterUnits(r *report.Report, keyword string) []report.Unit {
	keep := make(map[*report.Component]bool)
	for _, ref := range r.ListComponents(keyword) {
		keep[ref.Component] = true
	}
	var units []report.Unit
	for i := range r.Units {
		u := r.Units[i]
		var comps []report.Component
		for j := range r.Units[i].Components {
			if keep[&r.Units[i].Components[j]] {
				comps = append(comps, r.Units[i].Components[j])
			}
		}
		if len(comps) == 0 {
			continue
		}
		u.Components = comps
		units = append(units, u)
	}
	return units
}

type classifyResult struct {
	Kind       string        `json:"kind"`
	Type       string        `json:"type"`
	Validator  string        `json:"validator"`
	Optional   bool          `json:"optional"`
	Normalized proptype.Type `json:"normalized"`
	Props      []report.Prop `json:"props,omitempty"`
}

func (s *Server) handleClassifyType(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := s.gen.Scanner().Locator().ClassifyType(req.GetString("prelude", ""), expr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	em := s.gen.Emitter()
	out := classifyResult{
		Kind:       info.Type.Kind.String(),
		Type:       info.Type.String(),
		Validator:  em.Type(info.Type),
		Optional:   info.Optional,
		Normalized: info.Type,
	}
	for _, p := range info.Props {
		out.Props = append(out.Props, report.Prop{
			Name:      p.Name,
			Type:      p.Type.String(),
			Validator: em.Prop(p),
			Required:  p.Required,
		})
	}
	return jsonResult(out)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
