package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Skufu/carealert/internal/config"
	"github.com/Skufu/carealert/internal/emergency"
	"github.com/Skufu/carealert/internal/server"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "detect", "token"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("expected %q subcommand, got %v (%v)", name, cmd, err)
		}
	}
}

func TestBuildDetectorAppliesRulesFileAndAmbulance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("critical_symptoms: [blue lips]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := buildDetector(path, "112", nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := d.AssessWithPrediction(context.Background(), []string{"Blue Lips"}, nil)
	if !resp.IsEmergency {
		t.Fatalf("expected rule from file to apply, got %+v", resp)
	}
	if resp.EmergencyContacts[emergency.AmbulanceContact] != "112" || resp.AmbulanceInfo.ContactNumber != "112" {
		t.Fatalf("expected ambulance number override, got %+v", resp.EmergencyContacts)
	}
}

func TestBuildDetectorMissingRulesFile(t *testing.T) {
	if _, err := buildDetector(filepath.Join(t.TempDir(), "nope.yaml"), "", nil, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing rules file")
	}
}

func TestDetectCommandPrintsJSON(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"detect", "--symptom", "chest pain,shortness of breath", "--disease", "Heart Attack", "--confidence", "0.9", "--severity", "High"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var resp emergency.Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v (%s)", err, out.String())
	}
	if !resp.IsEmergency || resp.SeverityLevel != emergency.LevelCritical || math.Abs(resp.Confidence-0.95) > 1e-9 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRunDetectWithoutPrediction(t *testing.T) {
	var out bytes.Buffer
	err := runDetect(context.Background(), &out, detectOptions{symptoms: []string{"runny nose"}, ambulance: "911"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), `"severityLevel": "low"`) {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestRunToken(t *testing.T) {
	var out bytes.Buffer
	if err := runToken(&out, []byte("s3cret"), "ops", time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims := &server.Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "ops" || len(claims.Roles) != 1 || claims.Roles[0] != server.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if err := runToken(&out, nil, "ops", time.Hour); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Config{Env: "production", LogLevel: "warn"}, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"message":"shown"`) {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
}
