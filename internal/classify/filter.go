package classify

import "log"

const logSampleSize = 5

// Result summarizes a batch filtering run.
type Result struct {
	Input        int
	Kept         int
	Rejected     int
	Contaminated int
	Reasons      map[string]int // reason code -> count
}

// Filter classifies records in order and returns the kept records with
// their decisions. Kept records keep their input order.
func (c *Classifier) Filter(records []Record, target string, policy Policy) ([]Record, []Decision, *Result) {
	res := &Result{Input: len(records), Reasons: make(map[string]int)}

	var kept []Record
	var decisions []Decision
	logged := 0
	for _, rec := range records {
		d := c.Classify(rec, target, policy)
		res.Reasons[d.Reason]++
		if d.Include {
			kept = append(kept, rec)
			decisions = append(decisions, d)
			res.Kept++
			continue
		}
		res.Rejected++
		if logged < logSampleSize {
			log.Printf("Filtered out %q: %s (%s)", truncateTitle(rec.Title), d.Reason, d.Detail)
			logged++
		}
	}

	res.Contaminated = c.auditContamination(kept, target)

	log.Printf("Filtered %d records for %s (%s policy): kept %d, rejected %d",
		res.Input, target, policy, res.Kept, res.Rejected)
	return kept, decisions, res
}

// auditContamination re-checks kept records for traces of the
// conflicting entity. Regional-context records trip this on purpose;
// the warnings are a data quality signal, not an error.
func (c *Classifier) auditContamination(kept []Record, target string) int {
	guard, ok := c.guards.Lookup(target)
	if !ok {
		return 0
	}

	contaminated := 0
	for _, rec := range kept {
		if guard.listHasConflict(rec.PrimaryCountry) ||
			guard.listHasConflict(rec.AllCountries) ||
			guard.textHasConflict(rec.Title) {
			contaminated++
			if contaminated <= logSampleSize {
				log.Printf("Warning: kept record mentions conflicting entity: %q", truncateTitle(rec.Title))
			}
		}
	}
	if contaminated > 0 {
		log.Printf("Warning: %d of %d kept records carry conflicting-entity mentions", contaminated, len(kept))
	}
	return contaminated
}

func truncateTitle(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
