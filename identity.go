package xmppcert

import (
	"strings"

	"mellium.im/xmpp/jid"
)

// GetJIDs returns the JIDs the certificate is issued for, in order of first
// appearance and without duplicates.
//
// XmppAddr and DNS alternative names are used when there are any. Otherwise
// the subject common names that look like bare domains (no "@" or "/") are
// used. Names that do not parse as JIDs are logged and skipped.
func (c *CertificateData) GetJIDs() []jid.JID {
	var addrs []string
	switch {
	case c.hasAltNames(AltNameXmppAddr, AltNameDNS):
		addrs = append(addrs, c.AltNames[AltNameXmppAddr]...)
		addrs = append(addrs, c.AltNames[AltNameDNS]...)
	case len(c.CommonNames) > 0:
		for _, cn := range c.CommonNames {
			if !strings.ContainsAny(cn, "@/") {
				addrs = append(addrs, cn)
			}
		}
	default:
		return nil
	}

	var result []jid.JID
	for _, addr := range addrs {
		j, err := jid.Parse(addr)
		if err != nil {
			c.logger().Warn("bad JID in the certificate", "jid", addr, "error", err)
			continue
		}
		if !containsJID(result, j) {
			result = append(result, j)
		}
	}
	return result
}

// DomainsEqual reports whether a and b name the same domain. Comparison is on
// the domainpart as jid.Parse normalizes it, which drops a trailing dot, and
// ignores case. A string that is not a valid domain equals nothing.
func DomainsEqual(a, b string) bool {
	ja, err := jid.Parse(a)
	if err != nil || ja.Localpart() != "" || ja.Resourcepart() != "" {
		return false
	}
	jb, err := jid.Parse(b)
	if err != nil || jb.Localpart() != "" || jb.Resourcepart() != "" {
		return false
	}
	return strings.EqualFold(ja.Domainpart(), jb.Domainpart())
}

// sameJID is exact JID equality, except that domainparts compare without
// regard to case.
func sameJID(a, b jid.JID) bool {
	return a.Localpart() == b.Localpart() &&
		strings.EqualFold(a.Domainpart(), b.Domainpart()) &&
		a.Resourcepart() == b.Resourcepart()
}

func containsJID(jids []jid.JID, j jid.JID) bool {
	for _, have := range jids {
		if sameJID(have, j) {
			return true
		}
	}
	return false
}
