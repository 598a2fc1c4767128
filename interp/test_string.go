package interp

import (
	"errors"
	"strings"

	regexp "rsc.io/binaryregexp"
)

type AddressPart string

const (
	LocalPart AddressPart = "localpart"
	Domain    AddressPart = "domain"
	All       AddressPart = "all"
	// RFC 5233 subaddress extension
	User   AddressPart = "user"
	Detail AddressPart = "detail"
)

// SubaddressSeparator separates user from detail in a local-part.
const SubaddressSeparator = "+"

var commentRegex = regexp.MustCompile(`\([^)]*\)`)

// stripRFC2822Comments removes RFC 2822 comments (text in parentheses) from
// address strings, so "tss(no spam)@fi.iki" becomes "tss@fi.iki". Nested
// comments are not handled.
func stripRFC2822Comments(addr string) string {
	return strings.TrimSpace(commentRegex.ReplaceAllString(addr, ""))
}

func split(addr string) (mailbox, domain string, err error) {
	if strings.EqualFold(addr, "postmaster") {
		return addr, "", nil
	}

	indx := strings.LastIndexByte(addr, '@')
	if indx == -1 {
		return "", "", errors.New("address: missing at-sign")
	}
	mailbox = addr[:indx]
	domain = addr[indx+1:]
	if mailbox == "" {
		return "", "", errors.New("address: empty local-part")
	}
	if domain == "" {
		return "", "", errors.New("address: empty domain")
	}
	return
}

// splitSubaddress splits a local-part into user and detail parts. If no
// separator is found, user is the entire local-part and detail is empty.
func splitSubaddress(localPart string) (user, detail string, ok bool) {
	idx := strings.Index(localPart, SubaddressSeparator)
	if idx == -1 {
		return localPart, "", false
	}
	return localPart[:idx], localPart[idx+len(SubaddressSeparator):], true
}

// addressPart extracts the compared part of address. ok is false if the
// address has no such part, in which case it matches no key.
func addressPart(part AddressPart, address string) (string, bool) {
	if address == "<>" {
		address = ""
	}
	if address == "" {
		return "", true
	}

	switch part {
	case All:
		return address, true
	case LocalPart, Domain:
		localPart, domain, err := split(address)
		if err != nil {
			return "", false
		}
		if part == Domain {
			return domain, true
		}
		return localPart, true
	case User, Detail:
		localPart, _, err := split(address)
		if err != nil {
			return "", false
		}
		user, detail, hasSep := splitSubaddress(localPart)
		if part == User {
			return user, true
		}
		// RFC 5233 Section 4: no separator means :detail matches nothing.
		return detail, hasSep
	}
	return "", false
}

func testAddress(matcher matcherTest, part AddressPart, address string) bool {
	value, ok := addressPart(part, address)
	if !ok {
		return false
	}
	return matcher.tryMatch(value)
}
