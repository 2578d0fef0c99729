package reliefweb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// fallback vocabularies, verified against the live API; used when the
// facet request fails so CLI completion and validation keep working
var fallbackOptions = map[string][]string{
	"format.name": {
		"Situation Report", "Assessment", "Analysis", "Appeal", "Infographic",
		"Map", "News and Press Release", "Evaluation and Lessons Learned",
		"Manual and Guideline", "UN Document",
	},
	"theme.name": {
		"Agriculture", "Camp Coordination and Camp Management", "Climate Change and Environment",
		"Contributions", "Coordination", "Disaster Management", "Education", "Food and Nutrition",
		"Gender", "Health", "HIV/Aids", "Humanitarian Financing", "Logistics and Telecommunications",
		"Mine Action", "Peacekeeping and Peacebuilding", "Protection and Human Rights",
		"Recovery and Reconstruction", "Safety and Security", "Shelter and Non-Food Items",
		"Water Sanitation Hygiene",
	},
	"language.name": {"English", "French", "Arabic", "Spanish"},
}

type facetRequest struct {
	Facets []facetSpec `json:"facets"`
	Limit  int         `json:"limit"`
}

type facetSpec struct {
	Field string `json:"field"`
	Limit int    `json:"limit"`
}

type facetResponse struct {
	Embedded struct {
		Facets map[string]struct {
			Data []struct {
				Value string `json:"value"`
			} `json:"data"`
		} `json:"facets"`
	} `json:"embedded"`
}

// FilterOptions returns the known values of a filterable taxonomy
// field (e.g. "theme.name"). Results are cached for an hour; on API
// failure a verified static list is returned instead.
func (c *Client) FilterOptions(ctx context.Context, field string) ([]string, error) {
	if cached, ok := c.cache.Get("options:" + field); ok {
		return cached.([]string), nil
	}

	values, err := c.fetchFacet(ctx, field)
	if err != nil {
		log.Printf("Facet request for %s failed, using fallback list: %v", field, err)
		fb, ok := fallbackOptions[field]
		if !ok {
			return nil, fmt.Errorf("no options available for field %q: %w", field, err)
		}
		return fb, nil
	}

	c.cache.SetDefault("options:"+field, values)
	return values, nil
}

func (c *Client) fetchFacet(ctx context.Context, field string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(facetRequest{
		Facets: []facetSpec{{Field: field, Limit: 200}},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?appname=%s", c.baseURL, c.appname)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facet request returned %d", resp.StatusCode)
	}

	var result facetResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	facet, ok := result.Embedded.Facets[field]
	if !ok || len(facet.Data) == 0 {
		return nil, fmt.Errorf("no facet data for %q", field)
	}

	values := make([]string, 0, len(facet.Data))
	for _, d := range facet.Data {
		if d.Value != "" {
			values = append(values, d.Value)
		}
	}
	return values, nil
}
