package main

import "fmt"

// Run executes the listing command.
func (c *ListingCmd) Run(deps *Dependencies) error {
	items, err := deps.Scraper.ScrapeListing(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: failed to scrape %s\n", deps.Scraper.ListingURL())
		return err
	}

	return writeJSON(deps.Stdout, items, c.Pretty)
}
