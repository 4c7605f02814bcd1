// Package mdtl translates documentation markdown into missing locales.
//
// A documentation site keeps one file per language next to each other,
// named <name>.<locale>.md. mdtl scans the content root for files in the
// primary locale, works out which configured target locales have no sibling
// yet, and asks a translation backend (DeepL, an OpenAI-compatible chat
// model, or Simpleen) to fill the gaps. Existing files are never touched, so
// a second run with no new sources makes no network calls.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/mdtl"
//	    "github.com/ZaguanLabs/mdtl/provider"
//	)
//
//	func main() {
//	    backend, err := provider.New(provider.Config{
//	        Service: "deepl",
//	        APIKey:  os.Getenv("DEEPL_API_KEY"),
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    d := mdtl.NewDispatcher("docs", "en", []mdtl.LocaleSpec{
//	        {Code: "en", Default: true, Build: true},
//	        {Code: "de", Build: true},
//	    }, backend, mdtl.WithWorkers(4))
//
//	    report, err := d.Run(context.Background())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(report.Summary())
//	}
package mdtl
