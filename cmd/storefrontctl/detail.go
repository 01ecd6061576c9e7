package main

import "fmt"

// Run executes the detail command.
func (c *DetailCmd) Run(deps *Dependencies) error {
	detail, err := deps.Scraper.ScrapeDetail(deps.Ctx, c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: failed to scrape %s\n", c.URL)
		return err
	}

	return writeJSON(deps.Stdout, detail, c.Pretty)
}
