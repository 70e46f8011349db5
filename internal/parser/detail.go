package parser

import (
	"fmt"

	"github.com/stayradar/stayradar/internal/models"
)

// ParseDetail extracts the normalized detail record from a room page. The
// page is organized as named UI sections; sections a listing does not
// populate are simply absent from the output. A page without the product
// detail payload at all is a format error.
func (p *Parser) ParseDetail(html string) (*models.ListingDetail, error) {
	state, err := extractState(html)
	if err != nil {
		return nil, err
	}

	var pdp any
	for _, entry := range niobeEntries(state) {
		if candidate := dig(entry, "data", "presentation", "stayProductDetailPage"); candidate != nil {
			pdp = candidate
			break
		}
	}
	if pdp == nil {
		return nil, fmt.Errorf("%w: product detail payload not found", ErrUpstreamFormat)
	}

	detail := &models.ListingDetail{}
	for _, raw := range digSlice(pdp, "sections", "sections") {
		section := dig(raw, "section")
		if section == nil {
			continue
		}
		p.parseDetailSection(detail, digString(raw, "sectionId"), section)
	}
	return detail, nil
}

func (p *Parser) parseDetailSection(detail *models.ListingDetail, sectionID string, s any) {
	switch sectionID {
	case "TITLE_DEFAULT":
		detail.BasicInfo = models.BasicInfo{
			Title:          digString(s, "title"),
			PropertyType:   digString(s, "sharingConfig", "propertyType"),
			PersonCapacity: digInt(s, "embedData", "personCapacity"),
		}

	case "PHOTO_TOUR_SCROLLABLE_MODAL":
		for _, item := range digSlice(s, "mediaItems") {
			if u := digString(item, "baseUrl"); u != "" {
				detail.Photos = append(detail.Photos, models.Photo{
					URL:     u,
					Caption: digString(item, "accessibilityLabel"),
				})
			}
		}

	case "DESCRIPTION_DEFAULT":
		detail.Description = digString(s, "htmlDescription", "htmlText")

	case "AMENITIES_DEFAULT":
		for _, group := range digSlice(s, "seeAllAmenitiesGroups") {
			var items []string
			for _, a := range digSlice(group, "amenities") {
				if digBool(a, "available") {
					if title := digString(a, "title"); title != "" {
						items = append(items, title)
					}
				}
			}
			if len(items) > 0 {
				detail.Amenities = append(detail.Amenities, models.AmenityGroup{
					Category: digString(group, "title"),
					Items:    items,
				})
			}
		}

	case "REVIEWS_DEFAULT":
		detail.Reviews = models.ReviewSummary{
			OverallRating: digFloat(s, "overallRating"),
			TotalCount:    digInt(s, "overallCount"),
		}
		for _, r := range digSlice(s, "ratings") {
			detail.Reviews.Categories = append(detail.Reviews.Categories, models.CategoryRating{
				Category: digString(r, "label"),
				Rating:   digString(r, "localizedRating"),
			})
		}

	case "LOCATION_DEFAULT":
		detail.Location = models.Location{
			Name:       digString(s, "subtitle"),
			Lat:        digFloat(s, "lat"),
			Lng:        digFloat(s, "lng"),
			IsVerified: digBool(s, "listingLocationVerificationDetails", "isVerified"),
		}

	case "MEET_YOUR_HOST":
		card := dig(s, "cardData")
		detail.Host = models.HostInfo{
			Name:        digString(card, "name"),
			IsSuperhost: digBool(card, "isSuperhost"),
			IsVerified:  digBool(card, "isVerified"),
			About:       digString(s, "about"),
		}
		if overview := digSlice(s, "overviewItems"); len(overview) > 0 {
			detail.Host.Joined = digString(overview[0], "title")
		}

	case "POLICIES_DEFAULT":
		for _, rs := range digSlice(s, "houseRulesSections") {
			for _, item := range digSlice(rs, "items") {
				if title := digString(item, "title"); title != "" {
					detail.HouseRules = append(detail.HouseRules, title)
				}
			}
		}
	}
}
