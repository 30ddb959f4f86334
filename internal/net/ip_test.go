package net

import (
	"errors"
	"net"
	"testing"
)

func TestLocalIPFallbackReportsErrors(t *testing.T) {
	orig := listInterfaces
	t.Cleanup(func() { listInterfaces = orig })

	listInterfaces = func() ([]net.Interface, error) { return nil, errors.New("netlink denied") }
	if ip, err := localIPFallback(); err == nil {
		t.Errorf("localIPFallback = %q, want an error", ip)
	}

	listInterfaces = func() ([]net.Interface, error) {
		return []net.Interface{{Name: "lo", Flags: net.FlagUp | net.FlagLoopback}}, nil
	}
	if ip, err := localIPFallback(); err == nil {
		t.Errorf("loopback only: localIPFallback = %q, want an error", ip)
	}
}
