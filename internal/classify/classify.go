package classify

import (
	"fmt"
	"strings"
)

// Policy selects how strictly a record must be tied to the target
// country to be kept.
type Policy string

const (
	// PolicyPrimary keeps records whose primary country is the target.
	PolicyPrimary Policy = "primary"
	// PolicyAssociated keeps records that mention the target without it
	// being the primary country.
	PolicyAssociated Policy = "associated"
	// PolicyAll keeps records with any mention of the target.
	PolicyAll Policy = "all"
)

// ParsePolicy validates a policy string from config or CLI flags.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyPrimary:
		return PolicyPrimary, nil
	case PolicyAssociated:
		return PolicyAssociated, nil
	case PolicyAll:
		return PolicyAll, nil
	}
	return "", fmt.Errorf("unknown filter policy %q (want primary, associated or all)", s)
}

// Record is the country metadata of one report, as returned upstream.
type Record struct {
	PrimaryCountry string // single country name, may be empty
	AllCountries   string // delimited list, e.g. "Sudan; Chad; South Sudan"
	Title          string
}

// Decision is the outcome of classifying one record.
type Decision struct {
	Include bool
	Reason  string // stable machine-readable code, stored with the record
	Detail  string // human-readable context for logs
}

// Reason codes recorded in Decision.Reason.
const (
	ReasonCleanPrimary    = "clean_primary"
	ReasonPrimaryRegional = "primary_regional_context"
	ReasonCleanMention    = "clean_mention"
	ReasonAssociated      = "associated_mention"
	ReasonPrimaryMatch    = "primary_match"
	ReasonCountryMention  = "country_mention"
	ReasonConflictOnly    = "conflict_only"
	ReasonConflictInTitle = "conflict_in_title"
	ReasonContaminated    = "conflict_contaminated"
	ReasonNoMention       = "no_mention"
	ReasonNotPrimary      = "not_primary"
	ReasonNotAssociated   = "not_associated"
)

// Classifier decides whether records belong to a target country,
// disambiguating countries whose names contain each other.
type Classifier struct {
	guards GuardTable
}

// New creates a Classifier. A nil table gets the built-in guards.
func New(guards GuardTable) *Classifier {
	if guards == nil {
		guards = DefaultGuards()
	}
	return &Classifier{guards: guards}
}

// Classify decides whether rec should be kept for target under policy.
func (c *Classifier) Classify(rec Record, target string, policy Policy) Decision {
	if guard, ok := c.guards.Lookup(target); ok {
		return classifyGuarded(rec, guard, policy)
	}
	return classifyPlain(rec, target, policy)
}

// MatchesTitle reports whether free text mentions the target country,
// anchored at word boundaries and with conflicting-entity spans
// excluded. Feed entries carry no country lists, so title matching is
// all there is to go on.
func (c *Classifier) MatchesTitle(title, target string) bool {
	if guard, ok := c.guards.Lookup(target); ok {
		return guard.textMentionsTarget(title) && !guard.textHasConflict(title)
	}
	guard := Guard{Target: strings.ToLower(strings.TrimSpace(target))}
	return guard.textMentionsTarget(title)
}

func classifyGuarded(rec Record, guard Guard, policy Policy) Decision {
	primaryHit := guard.listMentionsTarget(rec.PrimaryCountry)
	allHit := guard.listMentionsTarget(rec.AllCountries)

	conflictPrimary := guard.listHasConflict(rec.PrimaryCountry)
	conflictAll := guard.listHasConflict(rec.AllCountries)
	conflictTitle := guard.textHasConflict(rec.Title)

	if !primaryHit && !allHit {
		if conflictPrimary || conflictAll || conflictTitle {
			return Decision{
				Reason: ReasonConflictOnly,
				Detail: fmt.Sprintf("only conflicting entity mentioned, not %s", guard.Target),
			}
		}
		return Decision{Reason: ReasonNoMention, Detail: guard.Target + " not mentioned"}
	}

	// The regional carve-out requires a clean primary match: target as
	// primary, conflicting entity absent from both primary and title.
	// Contaminated records without that anchor are rejected.
	switch policy {
	case PolicyPrimary:
		if !primaryHit {
			return Decision{Reason: ReasonNotPrimary, Detail: "primary country is " + rec.PrimaryCountry}
		}
		if conflictTitle {
			return Decision{Reason: ReasonConflictInTitle, Detail: "title names the conflicting entity"}
		}
		if conflictPrimary {
			return Decision{Reason: ReasonContaminated, Detail: "conflicting entity shares the primary field"}
		}
		if conflictAll {
			return Decision{
				Include: true,
				Reason:  ReasonPrimaryRegional,
				Detail:  "primary match with conflicting entity as regional mention",
			}
		}
		return Decision{Include: true, Reason: ReasonCleanPrimary, Detail: "clean primary country match"}

	case PolicyAssociated:
		if !allHit || primaryHit {
			return Decision{Reason: ReasonNotAssociated, Detail: "not an associated mention"}
		}
		if conflictTitle {
			return Decision{Reason: ReasonConflictInTitle, Detail: "title names the conflicting entity"}
		}
		if conflictPrimary || conflictAll {
			return Decision{Reason: ReasonContaminated, Detail: "associated mention next to the conflicting entity"}
		}
		return Decision{Include: true, Reason: ReasonAssociated, Detail: "mentioned as non-primary country"}

	default: // PolicyAll
		if conflictTitle {
			return Decision{Reason: ReasonConflictInTitle, Detail: "title names the conflicting entity"}
		}
		if conflictPrimary || conflictAll {
			if primaryHit && !conflictPrimary {
				return Decision{
					Include: true,
					Reason:  ReasonPrimaryRegional,
					Detail:  "primary match with conflicting entity as regional mention",
				}
			}
			return Decision{Reason: ReasonContaminated, Detail: "conflicting entity present without a clean primary match"}
		}
		return Decision{Include: true, Reason: ReasonCleanMention, Detail: "clean country mention"}
	}
}

// classifyPlain handles unambiguous country names with exact
// whole-entry matching against the delimited country lists.
func classifyPlain(rec Record, target string, policy Policy) Decision {
	guard := Guard{Target: strings.ToLower(strings.TrimSpace(target))}
	primaryHit := guard.listMentionsTarget(rec.PrimaryCountry)
	allHit := guard.listMentionsTarget(rec.AllCountries)

	switch policy {
	case PolicyPrimary:
		if primaryHit {
			return Decision{Include: true, Reason: ReasonPrimaryMatch, Detail: "primary country match"}
		}
		return Decision{Reason: ReasonNotPrimary, Detail: "primary country is " + rec.PrimaryCountry}
	case PolicyAssociated:
		if allHit && !primaryHit {
			return Decision{Include: true, Reason: ReasonAssociated, Detail: "mentioned as non-primary country"}
		}
		return Decision{Reason: ReasonNotAssociated, Detail: "not an associated mention"}
	default:
		if primaryHit || allHit {
			return Decision{Include: true, Reason: ReasonCountryMention, Detail: "country mentioned"}
		}
		return Decision{Reason: ReasonNoMention, Detail: target + " not mentioned"}
	}
}
