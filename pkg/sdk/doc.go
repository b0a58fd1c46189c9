// Package medmatch resolves free-text medicine mentions (prescriptions, strip
// labels, typed names) against a reference catalog, in process.
//
// # Catalog from a file
//
//	client, _ := medmatch.New(ctx, medmatch.WithCatalogFile("catalog.csv"))
//	matches, _ := client.Lookup(ctx, "dolo 650")
//	medicines, _ := client.Extract(ctx, prescriptionText)
//
// # Catalog from memory
//
//	client, _ := medmatch.New(ctx, medmatch.WithEntries([]medmatch.Entry{
//	    {BrandName: "Dolo 650", Generic: "Paracetamol", Aliases: []string{"Dolo"}},
//	}))
//
// Scores are on the 0..1 scale. Lookups that find nothing return an empty
// slice, never an error.
package medmatch
