package net

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is how viewer hosts announce themselves on the local network.
const ServiceType = "_panopaint._tcp"

// Advertise announces the viewer page on port so tablets on the same
// network can find it. Shut the returned server down to stop.
func Advertise(port int, tour string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, []string{"PanoPaint", "tour=" + tour})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse reports viewer hosts as http URLs. The lookup lasts until the
// deadline of ctx, or one second without one.
func Browse(ctx context.Context, found func(url string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found(ViewerURL(e.AddrV4.String(), e.Port))
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.DisableIPv6 = true
	if dl, ok := ctx.Deadline(); ok {
		params.Timeout = time.Until(dl)
	}
	err := mdns.Query(params)
	close(entries)
	<-done
	return err
}
