package markup

import (
	"strings"
	"testing"
)

func TestParse_AllKinds(t *testing.T) {
	text := "Hi @FNAME@, see .PLAN and *** then {Mood:1001} and {Affect : 1002 :: \"Flat\"}."
	occs := Parse(text)
	if len(occs) != 5 {
		t.Fatalf("len(occs) = %d, want 5: %+v", len(occs), occs)
	}
	wantKinds := []Kind{KindLink, KindAlias, KindWildcard, KindList, KindList}
	for i, k := range wantKinds {
		if occs[i].Kind != k {
			t.Errorf("occs[%d].Kind = %v, want %v", i, occs[i].Kind, k)
		}
	}
	if occs[0].Identifier != "FNAME" || occs[0].Text(text) != "@FNAME@" {
		t.Errorf("link = %+v", occs[0])
	}
	if occs[1].Identifier != "PLAN" || occs[1].Text(text) != ".PLAN" {
		t.Errorf("alias = %+v", occs[1])
	}
	if occs[2].Text(text) != "***" {
		t.Errorf("wildcard text = %q", occs[2].Text(text))
	}
	if occs[3].Label != "Mood" || occs[3].ListID != "1001" || occs[3].Selected {
		t.Errorf("unselected list = %+v", occs[3])
	}
	if occs[4].Label != "Affect" || occs[4].ListID != "1002" || !occs[4].Selected || occs[4].Value != "Flat" {
		t.Errorf("selected list = %+v", occs[4])
	}
}

func TestParse_SpansAreExactAndSorted(t *testing.T) {
	text := "café @A@ — {Sleep:7:: \"Poor\"} .Bx"
	occs := Parse(text)
	prevEnd := 0
	for _, o := range occs {
		if o.Start < prevEnd {
			t.Fatalf("overlapping or unsorted span %+v", o)
		}
		prevEnd = o.End
	}
	if occs[0].Text(text) != "@A@" {
		t.Errorf("multibyte prefix broke offsets: %q", occs[0].Text(text))
	}
	if occs[1].Text(text) != `{Sleep:7:: "Poor"}` {
		t.Errorf("list text = %q", occs[1].Text(text))
	}
}

func TestParse_AliasSkipsDecimals(t *testing.T) {
	occs := Parse("Take 2.5mg, weight 70.Kg, version v1.x")
	if Has(occs, KindAlias) {
		t.Errorf("decimal fractions matched as aliases: %+v", occs)
	}
	occs = Parse("end.Next")
	if len(occs) != 1 || occs[0].Identifier != "Next" {
		t.Errorf("occs = %+v", occs)
	}
}

func TestParse_WildcardExactlyThree(t *testing.T) {
	cases := map[string]int{
		"**":          0,
		"***":         1,
		"****":        0,
		"*****":       0,
		"******":      0,
		"*** and ***": 2,
		"a***b":       1,
	}
	for in, want := range cases {
		got := CountKinds(Parse(in)).Wildcards
		if got != want {
			t.Errorf("Parse(%q) wildcards = %d, want %d", in, got, want)
		}
	}
}

func TestParse_LinkInsideListLabelWins(t *testing.T) {
	text := "{Dr @NAME@ mood:1001}"
	occs := Parse(text)
	if len(occs) != 1 || occs[0].Kind != KindLink || occs[0].Identifier != "NAME" {
		t.Fatalf("occs = %+v, want single link", occs)
	}
}

func TestParse_MalformedListsAreText(t *testing.T) {
	for _, in := range []string{
		"{Mood}",
		"{Mood:}",
		"{:1001}",
		"{Mood:abc}",
		"{Mood:1001",
		`{Mood:1001:: Euthymic}`,
		`{Mood:1001:: "Euthymic}`,
		"{Mood\n:1001}",
	} {
		if occs := Parse(in); Has(occs, KindList) {
			t.Errorf("Parse(%q) produced list: %+v", in, occs)
		}
	}
}

func TestParse_LinkRequiresIdentifier(t *testing.T) {
	for _, in := range []string{"@@", "a @ b @", "mail@host.com", "@A B@"} {
		if Has(Parse(in), KindLink) {
			t.Errorf("Parse(%q) produced link", in)
		}
	}
}

func TestParse_IdempotentOnResolvedForms(t *testing.T) {
	text := LinksToAliases("@FNAME@ reports {Mood:1001}")
	text = ResolveLists(text, map[string]string{"1001": "Anxious"})
	c := CountKinds(Parse(text))
	if c.Links != 0 || c.Unselected != 0 {
		t.Errorf("resolved text still has unresolved forms: %+v", c)
	}
	if c.Aliases != 1 || c.Selected != 1 {
		t.Errorf("counts = %+v", c)
	}
}

func TestIdentifiers_UniqueInOrder(t *testing.T) {
	occs := Parse("@B@ @A@ @B@ {X:2} {Y:1} {Z:2}")
	links := Identifiers(occs, KindLink)
	if strings.Join(links, ",") != "B,A" {
		t.Errorf("links = %v", links)
	}
	lists := Identifiers(occs, KindList)
	if strings.Join(lists, ",") != "2,1" {
		t.Errorf("lists = %v", lists)
	}
}

func TestMergeAndSegments(t *testing.T) {
	text := "a @L@ b *** c"
	occs := Parse(text)
	merged := Merge(Filter(occs, KindWildcard), Filter(occs, KindLink))
	if merged[0].Kind != KindLink || merged[1].Kind != KindWildcard {
		t.Fatalf("merge not position sorted: %+v", merged)
	}
	segs := Segments(text, merged)
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	if b.String() != text {
		t.Errorf("segments do not cover text: %q", b.String())
	}
	if len(segs) != 5 || segs[1].Kind != KindLink || segs[3].Kind != KindWildcard {
		t.Errorf("segments = %+v", segs)
	}
}
