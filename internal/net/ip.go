package net

import (
	"errors"
	"fmt"
	"log"
	"net"
)

// listInterfaces is net.Interfaces, swappable in tests.
var listInterfaces = net.Interfaces

// OutgoingIP finds the local address other devices can reach the viewer
// page on.
func OutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		return conn.LocalAddr().(*net.UDPAddr).IP.String()
	}
	ip, err := localIPFallback()
	if err != nil {
		log.Printf("[HUB] no local network address, using loopback: %v", err)
		return "127.0.0.1"
	}
	return ip
}

// localIPFallback is used on networks without internet access.
func localIPFallback() (string, error) {
	ifaces, err := listInterfaces()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			log.Printf("[HUB] addresses of %s: %v", iface.Name, err)
			continue
		}
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}
	return "", errors.New("no IPv4 address on an active interface")
}

// ViewerURL is the address of the viewer page served on host and port.
func ViewerURL(host string, port int) string {
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, fmt.Sprint(port)))
}
