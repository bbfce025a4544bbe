package coverage

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/acarl005/stripansi"
)

// Format identifies a coverage report shape a suite runner may emit.
type Format string

const (
	// FormatSummaryText is the istanbul-style text summary block
	// ("Lines : 85.29% ( 116/136 )") most JS test runners print.
	FormatSummaryText Format = "summary-text"
	// FormatLCOV is the lcov record stream (SF:/DA:/LF:/LH:/end_of_record),
	// either cat'ed by the runner or embedded in its output.
	FormatLCOV Format = "lcov"
)

// summaryRe matches one metric line of a text summary. The printed percentage
// is ignored; it is recomputed from covered/total so the snapshot invariant
// holds even when the runner rounds differently.
var summaryRe = regexp.MustCompile(`(?m)^\s*(Statements|Branches|Functions|Lines)\s*:\s*[0-9.]+%\s*\(\s*(\d+)\s*/\s*(\d+)\s*\)`)

// Parse extracts a coverage snapshot from raw suite output, trying each
// format in order and combining what it finds: summary blocks provide the
// aggregate groups, lcov records provide per-file detail. It returns nil when
// no parseable coverage is present; that is an expected outcome, not an
// error.
func Parse(rawOutput string, formats ...Format) *Snapshot {
	if rawOutput == "" || len(formats) == 0 {
		return nil
	}
	clean := stripansi.Strip(rawOutput)

	var snap *Snapshot
	for _, f := range formats {
		switch f {
		case FormatSummaryText:
			if s := parseSummaryText(clean); s != nil {
				snap = combine(snap, s)
			}
		case FormatLCOV:
			if s := parseLCOV(clean); s != nil {
				snap = combine(snap, s)
			}
		}
	}
	return snap
}

// combine overlays b onto a: per-file detail wins over aggregate-only data,
// explicit aggregates win over recomputed ones.
func combine(a, b *Snapshot) *Snapshot {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := &Snapshot{
		Lines:      a.Lines,
		Statements: a.Statements,
		Functions:  a.Functions,
		Branches:   a.Branches,
		Files:      a.Files,
	}
	if len(b.Files) > 0 {
		out.Files = b.Files
	}
	if b.Lines.Total > 0 || b.Statements.Total > 0 || b.Functions.Total > 0 || b.Branches.Total > 0 {
		if a.Lines.Total == 0 && a.Statements.Total == 0 && a.Functions.Total == 0 && a.Branches.Total == 0 {
			out.Lines, out.Statements, out.Functions, out.Branches = b.Lines, b.Statements, b.Functions, b.Branches
		}
	}
	return out
}

func parseSummaryText(out string) *Snapshot {
	matches := summaryRe.FindAllStringSubmatch(out, -1)
	if len(matches) == 0 {
		return nil
	}

	snap := &Snapshot{}
	found := false
	for _, m := range matches {
		covered, err1 := strconv.Atoi(m[2])
		total, err2 := strconv.Atoi(m[3])
		if err1 != nil || err2 != nil {
			continue
		}
		g := group(covered, total)
		switch m[1] {
		case "Lines":
			snap.Lines = g
		case "Statements":
			snap.Statements = g
		case "Functions":
			snap.Functions = g
		case "Branches":
			snap.Branches = g
		}
		found = true
	}
	if !found {
		return nil
	}
	return snap
}

// lcovRecord accumulates raw counters for one SF: record. Groups are only
// composed at flush time because lcov emitters vary in directive order.
type lcovRecord struct {
	lineFound, lineHit     int
	funcFound, funcHit     int
	branchFound, branchHit int
	daTotal, daHit         int
	uncovered              []int
}

// parseLCOV scans lcov records embedded in the output. Unknown directives are
// skipped; a record without an SF: path is discarded.
func parseLCOV(out string) *Snapshot {
	var (
		files  = make(map[string]FileCoverage)
		path   string
		cur    lcovRecord
		sawAny bool
	)

	flush := func() {
		if path == "" {
			return
		}
		// LF/LH are authoritative when present, DA counts otherwise.
		lineFound, lineHit := cur.lineFound, cur.lineHit
		if lineFound == 0 && cur.daTotal > 0 {
			lineFound, lineHit = cur.daTotal, cur.daHit
		}
		fc := FileCoverage{
			Lines:          group(lineHit, lineFound),
			Functions:      group(cur.funcHit, cur.funcFound),
			Branches:       group(cur.branchHit, cur.branchFound),
			UncoveredLines: cur.uncovered,
		}
		// lcov has no statement records; lines stand in for them.
		fc.Statements = fc.Lines
		files[path] = fc
		path, cur = "", lcovRecord{}
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "SF:"):
			flush()
			path = strings.TrimSpace(strings.TrimPrefix(line, "SF:"))
			sawAny = sawAny || path != ""
		case path == "":
			// Directives before the first SF: (TN: etc.) carry nothing we need.
		case strings.HasPrefix(line, "DA:"):
			parts := strings.SplitN(strings.TrimPrefix(line, "DA:"), ",", 3)
			if len(parts) < 2 {
				continue
			}
			lineNo, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			hits, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err1 != nil || err2 != nil {
				continue
			}
			cur.daTotal++
			if hits > 0 {
				cur.daHit++
			} else {
				cur.uncovered = append(cur.uncovered, lineNo)
			}
		case strings.HasPrefix(line, "LF:"):
			cur.lineFound = atoiOr(strings.TrimPrefix(line, "LF:"), cur.lineFound)
		case strings.HasPrefix(line, "LH:"):
			cur.lineHit = atoiOr(strings.TrimPrefix(line, "LH:"), cur.lineHit)
		case strings.HasPrefix(line, "FNF:"):
			cur.funcFound = atoiOr(strings.TrimPrefix(line, "FNF:"), cur.funcFound)
		case strings.HasPrefix(line, "FNH:"):
			cur.funcHit = atoiOr(strings.TrimPrefix(line, "FNH:"), cur.funcHit)
		case strings.HasPrefix(line, "BRF:"):
			cur.branchFound = atoiOr(strings.TrimPrefix(line, "BRF:"), cur.branchFound)
		case strings.HasPrefix(line, "BRH:"):
			cur.branchHit = atoiOr(strings.TrimPrefix(line, "BRH:"), cur.branchHit)
		case line == "end_of_record":
			flush()
		}
	}
	flush()

	if !sawAny || len(files) == 0 {
		return nil
	}

	snap := &Snapshot{Files: files}
	snap.recomputeGroups()
	return snap
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}
