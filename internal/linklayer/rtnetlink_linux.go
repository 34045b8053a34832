//go:build linux

package linklayer

import (
	"fmt"

	"github.com/jsimonetti/rtnetlink/v2"
)

// EnumerateInterfaces returns every link-layer interface currently
// visible to the kernel, as a numeric-index-to-name map suitable for
// ports.NewRegistry. It opens a short-lived NETLINK_ROUTE connection,
// lists every link, and closes the connection before returning.
func EnumerateInterfaces() (map[int]string, error) {
	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("linklayer: dial rtnetlink: %w", err)
	}
	defer conn.Close()

	links, err := conn.Link.List()
	if err != nil {
		return nil, fmt.Errorf("linklayer: list links: %w", err)
	}

	out := make(map[int]string, len(links))
	for _, link := range links {
		if link.Attributes == nil || link.Attributes.Name == "" {
			continue
		}
		out[int(link.Index)] = link.Attributes.Name
	}
	return out, nil
}
