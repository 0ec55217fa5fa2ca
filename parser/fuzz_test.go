package parser

import "testing"

func FuzzParse(f *testing.F) {
	seeds := []string{
		`rule test { strings: $a = "hello" condition: any of them }`,
		`rule hex_test { strings: $h = { 48 65 6C 6C 6F } condition: any of them }`,
		`rule regex_test { strings: $r = /foo[0-9]+bar/ condition: any of them }`,
		`rule wildcards { strings: $h = { 48 ?? 6C 6C [2-4] 6F } condition: any of them }`,
		`rule hex_alt { strings: $h = { (AB | CD) EF } condition: any of them }`,
		`rule half_nibble { strings: $h = { 4? ?A } condition: any of them }`,
		`rule for_range { strings: $a = "x" condition: for any i in (0..10) : ( @a[i] > 0 ) }`,
		`rule for_set { condition: for all i in (1,2,3) : ( i > 0 ) }`,
		`private rule helper { condition: true }`,
		`rule mutex_test { condition: cuckoo.sync.mutex(/Global\\Mutex/i) }`,
		`rule int_read { condition: uint32be(0) == 0x47494638 }`,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, input string) {
		Parse("fuzz.yar", input) //nolint:errcheck
	})
}
