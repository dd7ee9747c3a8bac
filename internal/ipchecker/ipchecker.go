// Package ipchecker restricts handlers to clients from a trusted subnet.
package ipchecker

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/essayshare/internal/logger"
)

// ErrNoClientIP is returned when no address can be read from a request.
var ErrNoClientIP = errors.New("client IP address is missing or invalid")

// IPChecker extracts the client address of a request and checks it against
// a trusted subnet.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New creates an IPChecker for a subnet in CIDR notation (e.g. "192.168.1.0/24").
// An empty subnet disables the checker: nothing is trusted.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}
	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
	}
	return &IPChecker{
		trustedSubnet: allowedNet,
	}, nil
}

// Check reports whether clientIP lies in the trusted subnet.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// TrustsProxy reports whether forwarding headers sent by peer are believed:
// only loopback and trusted-subnet peers may speak for another client.
func (checker *IPChecker) TrustsProxy(peer net.IP) bool {
	return peer != nil && (peer.IsLoopback() || checker.Check(peer))
}

// GetClientIP returns the RemoteAddr host. When that peer is a trusted proxy,
// X-Real-IP and then the first entry of X-Forwarded-For take precedence.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/GetClientIP(): error while `net.SplitHostPort()` calling: %w", err)
	}
	peer := net.ParseIP(host)
	if peer == nil {
		return nil, ErrNoClientIP
	}

	if !checker.TrustsProxy(peer) {
		return peer, nil
	}

	if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
		return ip, nil
	}

	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip, nil
		}
		return nil, ErrNoClientIP
	}

	return peer, nil
}

// IsTrustedSubnetEmpty returns true if the IPChecker was initialized
// without a trusted subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

// TrustedOnly answers 403 to clients outside the trusted subnet.
func (checker *IPChecker) TrustedOnly(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if checker.IsTrustedSubnetEmpty() {
			response.WriteHeader(http.StatusForbidden)
			return
		}

		clientIP, err := checker.GetClientIP(request)
		if err != nil {
			logger.Log.Debugln("Error calling the `checker.GetClientIP()`: ", zap.Error(err))
			response.WriteHeader(http.StatusForbidden)
			return
		}

		if !checker.Check(clientIP) {
			response.WriteHeader(http.StatusForbidden)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
