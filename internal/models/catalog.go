package models

import "strings"

// PopularService is a quick-pick entry with sensible defaults for a known service.
type PopularService struct {
	Name      string
	Category  Category
	Color     string
	CancelURL string
}

// PopularServices is the quick-pick catalog.
var PopularServices = []PopularService{
	{Name: "Netflix", Category: CategoryOTT, Color: "#E50914", CancelURL: "https://netflix.com/cancelplan"},
	{Name: "Disney+", Category: CategoryOTT, Color: "#113CCF", CancelURL: "https://disneyplus.com"},
	{Name: "Spotify", Category: CategoryMusic, Color: "#1DB954", CancelURL: "https://spotify.com/account"},
	{Name: "Apple Music", Category: CategoryMusic, Color: "#FA243C", CancelURL: "https://appleid.apple.com"},
	{Name: "YouTube Premium", Category: CategoryOTT, Color: "#FF0000", CancelURL: "https://youtube.com/premium"},
	{Name: "Amazon Prime", Category: CategoryOTT, Color: "#FF9900", CancelURL: "https://amazon.com/prime"},
	{Name: "Microsoft 365", Category: CategorySoftware, Color: "#D83B01", CancelURL: "https://account.microsoft.com"},
	{Name: "Adobe Creative", Category: CategorySoftware, Color: "#FF0000", CancelURL: "https://account.adobe.com"},
	{Name: "Notion", Category: CategoryProductivity, Color: "#000000", CancelURL: "https://notion.so"},
	{Name: "ChatGPT Plus", Category: CategoryProductivity, Color: "#74AA9C", CancelURL: "https://chat.openai.com"},
	{Name: "iCloud", Category: CategoryCloud, Color: "#147EFB", CancelURL: "https://appleid.apple.com"},
	{Name: "Google One", Category: CategoryCloud, Color: "#4285F4", CancelURL: "https://one.google.com"},
	{Name: "Dropbox", Category: CategoryCloud, Color: "#0061FF", CancelURL: "https://dropbox.com/account"},
	{Name: "Xbox Game Pass", Category: CategoryGaming, Color: "#107C10", CancelURL: "https://xbox.com"},
	{Name: "PlayStation+", Category: CategoryGaming, Color: "#003087", CancelURL: "https://playstation.com"},
	{Name: "Duolingo Plus", Category: CategoryEducation, Color: "#58CC02", CancelURL: "https://duolingo.com"},
}

// LookupPopularService finds a catalog entry by exact name, ignoring case.
func LookupPopularService(name string) (PopularService, bool) {
	name = strings.TrimSpace(name)
	for _, s := range PopularServices {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return PopularService{}, false
}

// SearchPopularServices returns catalog entries whose name contains query.
// An empty query returns the whole catalog.
func SearchPopularServices(query string) []PopularService {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return PopularServices
	}
	var out []PopularService
	for _, s := range PopularServices {
		if strings.Contains(strings.ToLower(s.Name), query) {
			out = append(out, s)
		}
	}
	return out
}
