package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
)

const (
	defaultStickinessThreshold = 4
	defaultBlacklistThreshold  = 5
)

// Proxy is one egress descriptor, immutable after loading. Its identity is
// the full connection string it was parsed from.
type Proxy struct {
	Host     string
	Port     string
	Username string
	Password string

	raw string
}

// parseProxyLine parses a host:port or host:port:username:password line.
func parseProxyLine(line string) (*Proxy, error) {
	parts := strings.Split(line, ":")
	if len(parts) != 2 && len(parts) != 4 {
		return nil, fmt.Errorf("invalid proxy %q: want host:port or host:port:user:pass", line)
	}
	if parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid proxy %q: empty host or port", line)
	}
	p := &Proxy{Host: parts[0], Port: parts[1], raw: line}
	if len(parts) == 4 {
		p.Username = parts[2]
		p.Password = parts[3]
	}
	return p, nil
}

// Key returns the descriptor's identity, its full connection string.
func (p *Proxy) Key() string { return p.raw }

// Server returns the scheme://host:port form a browser proxy flag expects.
func (p *Proxy) Server() string { return fmt.Sprintf("http://%s:%s", p.Host, p.Port) }

// LoadProxies reads one descriptor per line, skipping blanks and # comments.
// A missing file is not an error: the pool just starts empty and the run
// proceeds unproxied.
func LoadProxies(path string) ([]*Proxy, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening proxy file: %w", err)
	}
	defer f.Close()

	var proxies []*Proxy
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := parseProxyLine(line)
		if err != nil {
			log.Printf("Skipping proxy line: %v", err)
			continue
		}
		proxies = append(proxies, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading proxy file: %w", err)
	}
	return proxies, nil
}

// ProxyPool rotates over descriptors in load order. A descriptor stays
// active while it keeps succeeding, up to the stickiness threshold, and is
// swapped out the moment it fails. Descriptors whose lifetime failure count
// reaches the blacklist threshold are retired for the rest of the process.
//
// The pool is owned by the single run goroutine and is not safe for
// concurrent use.
type ProxyPool struct {
	proxies   []*Proxy
	cursor    int
	failures  map[string]int
	streaks   map[string]int
	blacklist map[string]bool

	stickinessThreshold int
	blacklistThreshold  int
}

// NewProxyPool builds a pool over the descriptors in their load order.
// Non-positive thresholds fall back to the defaults.
func NewProxyPool(proxies []*Proxy, stickiness, blacklistThreshold int) *ProxyPool {
	if stickiness <= 0 {
		stickiness = defaultStickinessThreshold
	}
	if blacklistThreshold <= 0 {
		blacklistThreshold = defaultBlacklistThreshold
	}
	return &ProxyPool{
		proxies:             proxies,
		failures:            make(map[string]int),
		streaks:             make(map[string]int),
		blacklist:           make(map[string]bool),
		stickinessThreshold: stickiness,
		blacklistThreshold:  blacklistThreshold,
	}
}

// Current returns the active descriptor, or nil when the pool is empty or
// every descriptor is blacklisted. A nil descriptor means the caller fetches
// unproxied.
func (pp *ProxyPool) Current() *Proxy {
	n := len(pp.proxies)
	for i := 0; i < n; i++ {
		idx := (pp.cursor + i) % n
		p := pp.proxies[idx]
		if !pp.blacklist[p.Key()] {
			pp.cursor = idx
			return p
		}
	}
	return nil
}

// ReportOutcome records one attempt outcome for a descriptor. A success
// extends the descriptor's streak, rotating once the stickiness threshold is
// reached. A failure resets the streak, bumps the lifetime failure count,
// blacklists at the threshold and rotates immediately. A nil descriptor
// (unproxied attempt) is a no-op.
func (pp *ProxyPool) ReportOutcome(p *Proxy, success bool) {
	if p == nil {
		return
	}
	key := p.Key()
	if success {
		pp.streaks[key]++
		if pp.streaks[key] >= pp.stickinessThreshold {
			pp.streaks[key] = 0
			pp.rotate()
		}
		return
	}
	pp.streaks[key] = 0
	pp.failures[key]++
	if pp.failures[key] >= pp.blacklistThreshold && !pp.blacklist[key] {
		pp.blacklist[key] = true
		log.Printf("Proxy %s blacklisted after %d failures", p.Host, pp.failures[key])
	}
	pp.rotate()
}

// rotate advances the cursor to the next non-blacklisted descriptor after
// the current one, wrapping in load order. When none remain the cursor is
// left alone and Current reports unproxied mode.
func (pp *ProxyPool) rotate() {
	n := len(pp.proxies)
	if n == 0 {
		return
	}
	for i := 1; i <= n; i++ {
		idx := (pp.cursor + i) % n
		if !pp.blacklist[pp.proxies[idx].Key()] {
			pp.cursor = idx
			return
		}
	}
}

// BlacklistedCount reports how many descriptors have been retired.
func (pp *ProxyPool) BlacklistedCount() int { return len(pp.blacklist) }

// Size reports how many descriptors were loaded, blacklisted or not.
func (pp *ProxyPool) Size() int { return len(pp.proxies) }
