package parser

// Sentinel price range used when a page carries no price histogram. Low
// volume locations commonly miss the histogram, so its absence is not an
// error at this level.
const (
	DefaultMinPrice = 0
	DefaultMaxPrice = 25000
)

// ParsePriceRange extracts the min/max bounds of the price-histogram
// filter from a search page. found is false when the page parsed fine but
// carried no histogram; format breaks return an error.
func (p *Parser) ParsePriceRange(html string) (min, max int, found bool, err error) {
	state, err := extractState(html)
	if err != nil {
		return DefaultMinPrice, DefaultMaxPrice, false, err
	}

	for _, entry := range niobeEntries(state) {
		sections := digSlice(entry,
			"data", "presentation", "staysSearch", "results",
			"filters", "filterPanel", "filterPanelSections", "sections")
		for _, section := range sections {
			for _, item := range digSlice(section, "sectionData", "discreteFilterItems") {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if _, ok := m["priceHistogram"]; !ok {
					continue
				}
				return digInt(m, "minValue"), digInt(m, "maxValue"), true, nil
			}
		}
	}

	return DefaultMinPrice, DefaultMaxPrice, false, nil
}
