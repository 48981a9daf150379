package helpers

import (
	"net/url"
	"strings"
)

// HostOf returns the lowercased host (with port) of rawURL, or "" if it has none
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// UniqueHosts returns the distinct hosts of urls in first-seen order
func UniqueHosts(urls []string) []string {
	seen := make(map[string]bool)
	var hosts []string
	for _, u := range urls {
		host := HostOf(u)
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		hosts = append(hosts, host)
	}
	return hosts
}
