package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/ducminhle1904/portfolio-analytics/internal/config"
	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
	"github.com/ducminhle1904/portfolio-analytics/internal/optimizer"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// reportInput is the trades file. A bare JSON array is read as the trades.
type reportInput struct {
	Trades        []types.TradeInput  `json:"trades"`
	Optimizations []optimizer.Request `json:"optimizations,omitempty"`
}

func loadInput(path string) (*reportInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorCategoryValidation, "portfolio-report", "read_trades").
			WithContext("path", path)
	}
	return parseInput(raw)
}

func parseInput(raw []byte) (*reportInput, error) {
	raw = bytes.TrimSpace(raw)
	in := &reportInput{}

	var err error
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &in.Trades)
	} else {
		err = json.Unmarshal(raw, in)
	}
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorCategoryValidation, "portfolio-report", "parse_trades")
	}
	return in, nil
}

// buildRequests picks the optimization requests: those in the file, else the
// methods flag, else every method. Parameters default from cfg.
func buildRequests(fromFile []optimizer.Request, methods string, cfg *config.Config) ([]optimizer.Request, error) {
	if len(fromFile) > 0 {
		return fromFile, nil
	}

	names := make([]string, 0, len(optimizer.Methods))
	if strings.TrimSpace(methods) == "" {
		for _, m := range optimizer.Methods {
			names = append(names, string(m))
		}
	} else {
		for _, m := range strings.Split(methods, ",") {
			if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
				names = append(names, m)
			}
		}
	}

	target := cfg.Optimizer.TargetReturn
	aversion := cfg.Optimizer.RiskAversion
	out := make([]optimizer.Request, 0, len(names))
	for _, name := range names {
		req := optimizer.Request{Method: name}
		switch optimizer.Method(name) {
		case optimizer.MethodTargetReturn:
			req.TargetReturn = &target
		case optimizer.MethodUtility:
			req.RiskAversion = &aversion
		}
		if _, err := optimizer.ParseObjective(req); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}
