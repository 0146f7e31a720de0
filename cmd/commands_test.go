package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/x402-pay/internal/config"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

func TestServicesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := servicesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--category", "fines", "--locale", "en"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "traffic-fine")
	assert.Contains(t, out.String(), "admin-fine")
	assert.NotContains(t, out.String(), "water")
}

func TestServicesCommandJSON(t *testing.T) {
	var out bytes.Buffer
	cmd := servicesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--search", "agua", "--json"})

	require.NoError(t, cmd.Execute())
	var services []models.Service
	require.NoError(t, json.Unmarshal(out.Bytes(), &services))
	require.Len(t, services, 1)
	assert.Equal(t, "water", services[0].ID)
}

func TestServicesCommandRejectsLocale(t *testing.T) {
	cmd := servicesCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--locale", "fr"})
	assert.Error(t, cmd.Execute())
}

func TestNewAppInMemory(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.SignRejectRate = 0
	cfg.SettlementFailureRate = 0
	cfg.PollInterval = 1

	var out bytes.Buffer
	a, err := newApp(cfg, printer(&out))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	w, err := a.connectWallet(ctx)
	require.NoError(t, err)
	assert.True(t, w.Connected)

	svc, ok := a.catalog.Get("certificate")
	require.True(t, ok)
	snap, err := a.session.Start(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, snap.State)
	assert.Contains(t, out.String(), "[confirmed]")
	assert.Len(t, a.recorder.Session(snap.ID), 6)
}
