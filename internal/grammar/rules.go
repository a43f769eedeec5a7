package grammar

import (
	"regexp"
	"sort"
	"strings"

	"github.com/starford/smartscribe/internal/markup"
	"github.com/starford/smartscribe/internal/models"
)

var (
	temporalRe   = regexp.MustCompile(`(?i)\b(since|ago|weeks?|months?|years?|days?|onset|began|started|recently|past|last|ongoing|worsen(?:ed|ing)?|progressive(?:ly)?|gradual(?:ly)?|course|duration|episod(?:e|ic))\b`)
	severityRe   = regexp.MustCompile(`(?i)\b(mild(?:ly)?|moderate(?:ly)?|severe(?:ly)?|significant(?:ly)?|marked(?:ly)?|intense|extreme(?:ly)?|debilitating|persistent|constant|daily|nightly|\d+\s*/\s*10|out of 10|scale)\b`)
	functionalRe = regexp.MustCompile(`(?i)\b(work(?:ing)?|job|employ(?:ed|ment)|school|class(?:es)?|grades|relationships?|family|friends|social(?:ly)?|function(?:ing|al)?|daily activities|self[- ]care|hygiene|sleep(?:ing)?|appetite|unable to|difficulty|impair(?:ed|ment)|missed|withdrawn|isolat(?:ed|ing|ion))\b`)

	hospitalizationRe = regexp.MustCompile(`(?i)\b(hospitali[sz](?:ed|ation|ations)|inpatient|admitted|admissions?|psych(?:iatric)?\s+unit|involuntary\s+hold|5150)\b`)
	selfHarmRe        = regexp.MustCompile(`(?i)\b(self[- ]harm(?:ing)?|cutting|suicid(?:e|al)\s+attempts?|attempted\s+suicide|overdos(?:e|ed)|self[- ]injur(?:y|ious))\b`)
	denialRe          = regexp.MustCompile(`(?i)\b(denies|denied|deny|no\s+(?:history|prior|past|previous|lifetime)|never|not\s+(?:been|had|endorse)|negative\s+for|none)\b`)
	sentenceSplitRe   = regexp.MustCompile(`[.!?]+\s+|\n+`)

	nameToken = `(?:[.@][A-Za-z_]\w*@?|\*\*\*|[A-Z][\w'\-]*\.?)`
	ageToken  = `(?:\d{1,3}|[.@][A-Za-z_]\w*@?|\*\*\*)`

	identificationRe = regexp.MustCompile(`^` + nameToken + `(?:[ \t]+` + nameToken + `){0,3},?\s+(?i:is\s+an?)\s+` + ageToken + `[\s-]+(?i:years?)[\s-]+(?i:old)\b`)
	visitReasonRe    = regexp.MustCompile(`(?i)\b(present(?:s|ed|ing)?|referred|referral|evaluation|assessment|follow[- ]?up|seeking|complaints?|reason for|establish(?:ing)? care)\b`)

	diagnosisRe     = regexp.MustCompile(`(?i)\b(diagnos[ie]s|diagnosed|meets?\s+(?:DSM[- ]?5\s+)?criteria|most\s+consistent\s+with|consistent\s+with)\b`)
	biologicalRe    = regexp.MustCompile(`(?i)\bbiolog`)
	psychologicalRe = regexp.MustCompile(`(?i)\bpsycholog`)
	socialRe        = regexp.MustCompile(`(?i)\bsocial`)
	diagnosisCodeRe = regexp.MustCompile(`\b(?:[A-TV-Z]\d{2}(?:\.\d{1,4}[A-Z]?)?|\d{3}\.\d{1,2})\b`)

	differentialOpenRe = regexp.MustCompile(`(?i)^(?:the\s+|a\s+|our\s+)?(?:differential|alternative\s+diagnos|other\s+diagnos|diagnoses\s+considered|also\s+considered)`)
	comparativeRe      = regexp.MustCompile(`(?i)\b(because|however|whereas|rather\s+than|although|though|given|due\s+to|less\s+likely|more\s+likely|unlikely|ruled\s+out|rule\s+out|not\s+consistent|as\s+opposed\s+to|instead|but|while|since)\b`)

	treatmentOpenRe = regexp.MustCompile(`(?i)^(?:the\s+|our\s+)?(?:treatment|recommended\s+treatment|plan\s+of\s+care|going\s+forward|moving\s+forward|we\s+(?:will|recommend|plan)|recommendations?|management)`)

	durationRe  = regexp.MustCompile(`(?i)\b\d{1,3}\s*(?:(?:-|to)\s*\d{1,3}\s*)?(?:minutes?|mins?)\b`)
	soonerRe    = regexp.MustCompile(`(?i)\bor\s+(?:sooner|earlier)\b`)
	timeframeRe = regexp.MustCompile(`(?i)\b(?:\d{1,2}|one|two|three|four|five|six|eight|ten|twelve)(?:\s*(?:-|to)\s*(?:\d{1,2}|two|three|four|six|eight))?[\s-]*(?:days?|weeks?|months?)\b`)

	listLineRe = regexp.MustCompile(`^\s*(?:[-+•]|\*|\d{1,2}[.)])\s+\S`)
)

// planBlock is a required sub-header of the Plan section.
type planBlock struct {
	name string
	re   *regexp.Regexp
}

var planBlocks = []planBlock{
	{"Medications", regexp.MustCompile(`(?im)^[ \t]*medications?(?:[ \t]+(?:changes|management|plan))?[ \t]*:`)},
	{"Psychotherapy Referral", regexp.MustCompile(`(?im)^[ \t]*(?:psycho)?therapy[ \t]+referral[ \t]*:`)},
	{"Therapy Conducted", regexp.MustCompile(`(?im)^[ \t]*(?:psycho)?therapy[ \t]+(?:conducted|provided|performed)[ \t]*:`)},
	{"Follow-up", regexp.MustCompile(`(?im)^[ \t]*follow[ \t-]?up[ \t]*:`)},
}

// CheckHPI checks the History of Present Illness narrative.
func CheckHPI(body string, minChars int) models.Report {
	r := models.NewReport()
	text := strings.TrimSpace(body)
	paras := Paragraphs(body)
	if len(paras) < 2 && len(text) < minChars {
		r.Errorf("narrative is over-condensed: %d paragraph(s) and %d characters, expected at least 2 paragraphs or %d characters", len(paras), len(text), minChars)
	}
	if !temporalRe.MatchString(text) {
		r.Warnf("no temporal language describing onset or course")
	}
	if !severityRe.MatchString(text) {
		r.Warnf("no severity language")
	}
	if !functionalRe.MatchString(text) {
		r.Warnf("no functional-impact language")
	}
	return r
}

// CheckPsychiatricHistory flags hospitalization or self-harm statements
// that carry neither an explicit denial nor a *** placeholder.
func CheckPsychiatricHistory(body string) models.Report {
	r := models.NewReport()
	sentences := sentenceSplitRe.Split(body, -1)
	check := func(re *regexp.Regexp, what string) {
		for _, s := range sentences {
			if !re.MatchString(s) || denialRe.MatchString(s) || strings.Contains(s, "***") {
				continue
			}
			r.Warnf("%s is asserted without a denial or *** placeholder; confirm it is supported by the transcript: %q", what, strings.TrimSpace(s))
			return
		}
	}
	check(hospitalizationRe, "hospitalization history")
	check(selfHarmRe, "self-harm history")
	return r
}

// CheckFormulation checks the four-paragraph formulation. A wrong
// paragraph count is reported alone.
func CheckFormulation(body string) models.Report {
	r := models.NewReport()
	paras := Paragraphs(body)
	if len(paras) != 4 {
		r.Errorf("expected exactly 4 paragraphs, found %d", len(paras))
		return r
	}

	p1, p2, p3, p4 := paras[0], paras[1], paras[2], paras[3]

	if !identificationRe.MatchString(p1) {
		r.Errorf("paragraph 1 must open with the patient's name followed by \"is a N year old\"")
	}
	if !visitReasonRe.MatchString(p1) {
		r.Warnf("paragraph 1 does not state the reason for the visit")
	}

	if !diagnosisRe.MatchString(p2) {
		r.Errorf("paragraph 2 must state a diagnosis")
	}
	var missing []string
	if !biologicalRe.MatchString(p2) {
		missing = append(missing, "biological")
	}
	if !psychologicalRe.MatchString(p2) {
		missing = append(missing, "psychological")
	}
	if !socialRe.MatchString(p2) {
		missing = append(missing, "social")
	}
	if len(missing) > 0 {
		r.Errorf("paragraph 2 must address biological, psychological and social factors; missing %s", strings.Join(missing, ", "))
	}
	if !diagnosisCodeRe.MatchString(p2) {
		r.Warnf("paragraph 2 has no diagnostic code")
	}

	if !differentialOpenRe.MatchString(p3) {
		r.Errorf("paragraph 3 must open with differential-diagnosis framing")
	}
	if !comparativeRe.MatchString(p3) {
		r.Errorf("paragraph 3 must explain why alternatives are more or less likely")
	}

	if !treatmentOpenRe.MatchString(p4) {
		r.Errorf("paragraph 4 must open with treatment-direction framing")
	}
	if !strings.HasSuffix(p4, ":") {
		r.Warnf("paragraph 4 should end with a colon leading into the Plan")
	}
	return r
}

// PlanBlock is one recognized sub-block of a Plan section.
type PlanBlock struct {
	Name  string
	Start int
	Text  string
}

// SplitPlan returns the recognized sub-blocks of a Plan body in the order
// they appear. A block runs to the next recognized sub-header, the
// signature line or the end of body.
func SplitPlan(body, signature string) []PlanBlock {
	type loc struct {
		name       string
		start, end int
	}
	var locs []loc
	for _, b := range planBlocks {
		if m := b.re.FindStringIndex(body); m != nil {
			locs = append(locs, loc{name: b.name, start: m[0], end: m[1]})
		}
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].start < locs[j].start })

	out := make([]PlanBlock, 0, len(locs))
	for i, l := range locs {
		stop := len(body)
		if i+1 < len(locs) {
			stop = locs[i+1].start
		}
		if at := signatureIndex(body[l.end:stop], signature); at >= 0 {
			stop = l.end + at
		}
		out = append(out, PlanBlock{Name: l.name, Start: l.start, Text: strings.TrimSpace(body[l.end:stop])})
	}
	return out
}

// CheckPlan checks the Plan body and the closing signature of note.
func CheckPlan(body, note, signature string) models.Report {
	r := models.NewReport()

	blocks := map[string]string{}
	for _, b := range SplitPlan(body, signature) {
		blocks[b.Name] = b.Text
	}
	for _, b := range planBlocks {
		if _, ok := blocks[b.name]; !ok {
			r.Errorf("missing required sub-header %q", b.name)
		}
	}

	if text, ok := blocks["Therapy Conducted"]; ok && !durationRe.MatchString(text) {
		r.Errorf("Therapy Conducted must state the session duration in minutes")
	}
	if text, ok := blocks["Follow-up"]; ok {
		if !soonerRe.MatchString(text) {
			r.Errorf("Follow-up must include \"or sooner if needed\" or an equivalent")
		}
		if !timeframeRe.MatchString(text) {
			r.Warnf("Follow-up has no explicit timeframe")
		}
	}

	sig := strings.TrimSpace(signature)
	switch {
	case lastNonBlankLine(note) == sig:
		if signatureIndex(body, sig) < 0 {
			r.Errorf("signature line %q must close the Plan section", sig)
		}
	case signatureIndex(note, sig) >= 0:
		r.Errorf("signature line %q must be the last line of the note", sig)
	default:
		r.Errorf("missing closing signature line %q", sig)
	}
	return r
}

// signatureIndex returns the offset of the first line of text equal to
// signature, or -1.
func signatureIndex(text, signature string) int {
	sig := strings.TrimSpace(signature)
	if sig == "" {
		return -1
	}
	for pos := 0; pos <= len(text); {
		end := strings.IndexByte(text[pos:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += pos
		}
		if strings.TrimSpace(text[pos:end]) == sig {
			return pos
		}
		pos = end + 1
	}
	return -1
}

// CheckFormatting checks note-wide formatting. planStart is the offset of
// the Plan header, or -1 when the note has none.
func CheckFormatting(note string, planStart int) models.Report {
	r := models.NewReport()

	prose := note
	if planStart >= 0 && planStart <= len(note) {
		prose = note[:planStart]
	}
	first, count := 0, 0
	for i, line := range strings.Split(prose, "\n") {
		if listLineRe.MatchString(line) {
			if count == 0 {
				first = i + 1
			}
			count++
		}
	}
	if count > 0 {
		r.Errorf("list formatting is not allowed before the Plan; %d list line(s), first on line %d", count, first)
	}

	if links := markup.Identifiers(markup.Parse(note), markup.KindLink); len(links) > 0 {
		r.Errorf("%d unconverted SmartLink(s) remain, e.g. @%s@; convert them to DotPhrases", len(links), links[0])
	}

	blank := 0
	for _, line := range strings.Split(note, "\n") {
		if strings.TrimSpace(line) != "" {
			blank = 0
			continue
		}
		blank++
		if blank == 3 {
			r.Warnf("note contains runs of 3 or more blank lines")
			break
		}
	}
	return r
}
