package dataforseo

import (
	"encoding/json"
)

// The provider uses two response shapes for keyword data. The Google
// search-volume endpoint puts keyword objects directly in result[], while
// the clickstream endpoints nest them one level deeper under
// result[].items[].

type taskList struct {
	Tasks []task `json:"tasks"`
}

type task struct {
	StatusCode    int               `json:"status_code"`
	StatusMessage string            `json:"status_message"`
	Data          json.RawMessage   `json:"data"`
	Result        []json.RawMessage `json:"result"`
}

// failed reports whether this task should be skipped. A failing task inside
// a successful envelope is logged and dropped, never raised: the call
// degrades to a shorter result list.
func (t *task) failed() bool {
	return t.StatusCode != statusOK
}

type flatItem struct {
	Keyword         string          `json:"keyword"`
	SearchVolume    *int64          `json:"search_volume"`
	MonthlySearches []MonthlySearch `json:"monthly_searches"`
	LocationCode    *int64          `json:"location_code"`
	LanguageCode    string          `json:"language_code"`
	UseClickstream  *bool           `json:"use_clickstream"`
}

// parseFlatResults walks result[] directly. Items carrying neither a
// keyword nor a search_volume key are dropped; a present-but-null
// search_volume is kept as a nil pointer, distinct from zero.
func (c *Client) parseFlatResults(body []byte, endpoint string) ([]SearchVolumeResult, error) {
	var resp taskList
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}

	results := make([]SearchVolumeResult, 0)
	for _, t := range resp.Tasks {
		if t.failed() {
			c.logTaskFailure(&t)
			continue
		}
		for _, raw := range t.Result {
			var keys map[string]json.RawMessage
			if err := json.Unmarshal(raw, &keys); err != nil {
				continue
			}
			if _, ok := keys["keyword"]; !ok {
				continue
			}
			if _, ok := keys["search_volume"]; !ok {
				continue
			}

			var item flatItem
			if err := json.Unmarshal(raw, &item); err != nil {
				continue
			}

			useClickstream := true
			if item.UseClickstream != nil {
				useClickstream = *item.UseClickstream
			}

			results = append(results, SearchVolumeResult{
				Keyword:         item.Keyword,
				SearchVolume:    item.SearchVolume,
				MonthlySearches: item.MonthlySearches,
				LocationCode:    item.LocationCode,
				LanguageCode:    item.LanguageCode,
				UseClickstream:  useClickstream,
			})
		}
	}
	return results, nil
}

type nestedResult struct {
	LocationCode *int64       `json:"location_code"`
	Items        []nestedItem `json:"items"`
}

type nestedItem struct {
	Keyword             string          `json:"keyword"`
	SearchVolume        *int64          `json:"search_volume"`
	MonthlySearches     []MonthlySearch `json:"monthly_searches"`
	CountryDistribution []CountryShare  `json:"country_distribution"`
}

// parseGlobalResults walks result[].items[] for the normalized global
// endpoint, keeping country_distribution in provider order.
func (c *Client) parseGlobalResults(body []byte, endpoint string) ([]GlobalSearchVolumeResult, error) {
	var resp taskList
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}

	results := make([]GlobalSearchVolumeResult, 0)
	for _, t := range resp.Tasks {
		if t.failed() {
			c.logTaskFailure(&t)
			continue
		}
		for _, raw := range t.Result {
			var res nestedResult
			if err := json.Unmarshal(raw, &res); err != nil {
				continue
			}
			for _, item := range res.Items {
				var volume int64
				if item.SearchVolume != nil {
					volume = *item.SearchVolume
				}
				results = append(results, GlobalSearchVolumeResult{
					Keyword:             item.Keyword,
					SearchVolume:        volume,
					CountryDistribution: item.CountryDistribution,
				})
			}
		}
	}
	return results, nil
}

// parseNestedResults walks result[].items[] for the by-location endpoint.
// Each item additionally carries monthly_searches, and the location code
// comes off the enclosing result object, not the item.
func (c *Client) parseNestedResults(body []byte, endpoint string) ([]SearchVolumeResult, error) {
	var resp taskList
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}

	results := make([]SearchVolumeResult, 0)
	for _, t := range resp.Tasks {
		if t.failed() {
			c.logTaskFailure(&t)
			continue
		}
		for _, raw := range t.Result {
			var res nestedResult
			if err := json.Unmarshal(raw, &res); err != nil {
				continue
			}
			for _, item := range res.Items {
				results = append(results, SearchVolumeResult{
					Keyword:         item.Keyword,
					SearchVolume:    item.SearchVolume,
					MonthlySearches: item.MonthlySearches,
					LocationCode:    res.LocationCode,
				})
			}
		}
	}
	return results, nil
}

func (c *Client) logTaskFailure(t *task) {
	c.log.WithFields(map[string]interface{}{
		"status_code":    t.StatusCode,
		"status_message": t.StatusMessage,
		"task_data":      string(t.Data),
	}).Error("Task failed, skipping its results")
}
