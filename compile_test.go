package sieve

import (
	"strings"
	"testing"
)

// Scripts that must be rejected before evaluation, grouped the same way as
// the pigeonhole compile error tests.
func TestCompileErrors(t *testing.T) {
	groups := map[string][]string{
		"lexer": {
			`keep "unterminated;`,
			`keep; /* open comment`,
			`keep 12X;`,
			"require \"fileinto\"; fileinto text:\nINBOX\n",
		},
		"parser": {
			`keep`,
			`keep; }`,
			`if true { keep; `,
			`require ["fileinto",];`,
			`require [];`,
		},
		"header": {
			`if header "Subject" { keep; }`,
			`if header 1 "a" { keep; }`,
		},
		"address": {
			`if address :all :domain "from" "x" { keep; }`,
			`if address :localpart "from" { keep; }`,
		},
		"if": {
			`else { keep; }`,
			`elsif true { keep; }`,
			`if true { keep; } discard; else { keep; }`,
			`if true;`,
			`if { keep; }`,
		},
		"require": {
			`require 1;`,
			`require "nosuch";`,
			`keep; require "fileinto";`,
			`if true { require "fileinto"; }`,
		},
		"size": {
			`if size 100 { keep; }`,
			`if size :over :under 1 { keep; }`,
			`if size :over "1" { keep; }`,
		},
		"envelope": {
			`if envelope "from" "x" { keep; }`,
			`require "envelope"; if envelope "subject" "x" { keep; }`,
		},
		"stop": {
			`stop "now";`,
			`stop { keep; }`,
		},
		"keep": {
			`keep "INBOX";`,
		},
		"fileinto": {
			`fileinto "INBOX";`,
			`require "fileinto"; fileinto;`,
			`require "fileinto"; fileinto ["a", "b"];`,
		},
		"comparator": {
			`if header :comparator "i;nosuch" "a" "b" { keep; }`,
			`if header :comparator "i;ascii-numeric" "a" "1" { keep; }`,
			`if header :comparator ["i;octet", "i;ascii-casemap"] "a" "b" { keep; }`,
		},
		"address-part": {
			`if address :user "from" "x" { keep; }`,
		},
		"match-type": {
			`if header :is :contains "a" "b" { keep; }`,
			`if header :regex "a" "b" { keep; }`,
			`if header :value "gt" "a" "1" { keep; }`,
			`require "relational"; if header :value "xx" "a" "1" { keep; }`,
			`require "regex"; if header :regex "a" "(" { keep; }`,
		},
		"out-address": {
			`redirect "not an address";`,
			`require "vacation"; vacation :from "not an address" "away";`,
		},
		"tag": {
			`keep :copy;`,
			`if header :nosuch "a" "b" { keep; }`,
			`if header "a" :is "b" { keep; }`,
		},
		"typos": {
			`kepe;`,
			`if headr "a" "b" { keep; }`,
		},
		"unsupported": {
			`require "imap4flags";`,
			`require "variables"; set "a" "b";`,
		},
	}

	for name, scripts := range groups {
		t.Run(name, func(t *testing.T) {
			for _, script := range scripts {
				if _, err := Load(strings.NewReader(script), DefaultOptions()); err == nil {
					t.Errorf("compile should have failed: %s", script)
				}
			}
		})
	}
}

func TestCompileRecover(t *testing.T) {
	for name, script := range map[string]string{
		"missing semicolons":                "keep\ndiscard;",
		"missing semicolon at end of block": `if true { keep }`,
		"spurious comma at end of test list": `if anyof (true, false,) { keep; }`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(script), DefaultOptions()); err == nil {
				t.Fatal("compile should have failed.")
			}
		})
	}
}

func TestCompile(t *testing.T) {
	scripts := []string{
		``,
		`# just a comment`,
		`require "fileinto"; require ["envelope", "copy"]; keep;`,
		`if anyof (not true, false) { discard; } elsif allof (true, true) { keep; } else { stop; }`,
		"require \"reject\"; reject text:\n..dot-stuffed\n.\n;",
		`require ["relational", "comparator-i;ascii-numeric"]; if header :count "ge" :comparator "i;ascii-numeric" "to" "2" { keep; }`,
		`require "subaddress"; if address :detail "to" "lists" { keep; }`,
		`require "body"; if body :raw :contains "x" { keep; }`,
		`if exists ["From", "To"] { keep; }`,
		`if size :over 100K { discard; }`,
	}
	for _, script := range scripts {
		if _, err := Load(strings.NewReader(script), DefaultOptions()); err != nil {
			t.Errorf("%q: %v", script, err)
		}
	}
}
