package xmppcert

import (
	"errors"
	"fmt"
	"strings"

	"mellium.im/xmpp/jid"
)

// DefaultSRVType is the service whose SRV-IDs VerifyServer accepts by default.
const DefaultSRVType = "xmpp-client"

var (
	// ErrUnauthenticated is matched by every error VerifyClient returns.
	ErrUnauthenticated = errors.New("certificate does not authenticate the client")

	// ErrNoIdentity means the certificate names no JID with a localpart.
	ErrNoIdentity = fmt.Errorf("%w: no client JID in certificate", ErrUnauthenticated)

	// ErrNotAuthorized means the certificate names client JIDs, but none of
	// them is in an accepted domain.
	ErrNotAuthorized = fmt.Errorf("%w: no client JID in an accepted domain", ErrUnauthenticated)
)

// VerifyServer reports whether the certificate is valid for the server
// serverName. Only the domain of serverName is considered.
//
// When the certificate has XmppAddr, DNS or SRVName alternative names, the
// domain must equal a DNS name, the domain of an XmppAddr, or, if srvType is
// not empty, an SRVName of the form "_<srvType>.<domain>". Only when it has
// none of those is the subject common name consulted.
//
// Matching is exact. Wildcard names such as "*.example.com" are not expanded
// and only match a server literally named "*.example.com".
func (c *CertificateData) VerifyServer(serverName, srvType string) bool {
	server, err := jid.Parse(serverName)
	if err != nil {
		c.logger().Warn("bad server name", "server", serverName, "error", err)
		return false
	}
	domain := server.Domain()

	if !c.hasAltNames(AltNameXmppAddr, AltNameDNS, AltNameSRVName) {
		return c.verifyCommonName(domain)
	}

	for _, name := range c.AltNames[AltNameDNS] {
		j, err := jid.Parse(name)
		if err != nil {
			continue
		}
		if sameJID(j, domain) {
			return true
		}
	}
	for _, addr := range c.AltNames[AltNameXmppAddr] {
		j, err := jid.Parse(addr)
		if err != nil {
			continue
		}
		if sameJID(j.Domain(), domain) {
			return true
		}
	}

	if srvType != "" {
		return c.verifySRVName(domain, srvType)
	}
	return false
}

func (c *CertificateData) verifyCommonName(domain jid.JID) bool {
	for _, name := range c.CommonNames {
		j, err := jid.Parse(name)
		if err != nil {
			continue
		}
		if sameJID(j, domain) {
			return true
		}
	}
	return false
}

func (c *CertificateData) verifySRVName(domain jid.JID, srvType string) bool {
	prefix := "_" + srvType + "."
	for _, srv := range c.AltNames[AltNameSRVName] {
		name, ok := strings.CutPrefix(srv, prefix)
		if !ok {
			continue
		}
		j, err := jid.Parse(name)
		if err != nil {
			continue
		}
		if sameJID(j, domain) {
			return true
		}
	}
	return false
}

// VerifyClient returns the JID a client presenting this certificate may use.
//
// Candidates are the JIDs from GetJIDs that have a localpart. If requested is
// not the zero JID and is a candidate, it is returned. Otherwise, with a nil
// domains the first candidate in GetJIDs order is returned, and with a non-nil
// domains the first candidate whose domain equals one of them. An empty,
// non-nil domains accepts nothing.
//
// The error is ErrNoIdentity when there are no candidates and
// ErrNotAuthorized when none is in an accepted domain.
func (c *CertificateData) VerifyClient(requested jid.JID, domains []string) (jid.JID, error) {
	var candidates []jid.JID
	for _, j := range c.GetJIDs() {
		if j.Localpart() != "" {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return jid.JID{}, ErrNoIdentity
	}

	if requested.Domainpart() != "" && containsJID(candidates, requested) {
		return requested, nil
	}

	if domains == nil {
		return candidates[0], nil
	}

	for _, j := range candidates {
		for _, domain := range domains {
			if DomainsEqual(j.Domainpart(), domain) {
				return j, nil
			}
		}
	}
	return jid.JID{}, ErrNotAuthorized
}
