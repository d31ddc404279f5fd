package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/reflow/docfile"
	"github.com/teranos/reflow/engine"
	"github.com/teranos/reflow/logger"
	"github.com/teranos/reflow/object"
)

// EvalCmd evaluates all expression bindings in a document file
var EvalCmd = &cobra.Command{
	Use:   "eval <document.yaml>",
	Short: "Evaluate all expression bindings in a document file",
	Long: `Loads a document description, binds every declared expression and runs
two evaluation passes: first the non-output targets, then the
output-flagged ones. Resulting property values are printed per object.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func runEval(cmd *cobra.Command, args []string) error {
	doc, engines, err := docfile.Load(args[0])
	if err != nil {
		return err
	}

	logger.Infow("document loaded",
		logger.FieldDocument, doc.Name(),
		logger.FieldFile, args[0],
		logger.FieldCount, len(engines),
	)

	// Non-output targets first, then the output-only pass, per object in
	// document order
	for _, obj := range doc.Objects() {
		eng, ok := engines[obj.Name()]
		if !ok {
			continue
		}
		if err := eng.Execute(engine.ScopeNonOutput); err != nil {
			return err
		}
		if err := eng.Execute(engine.ScopeOutput); err != nil {
			return err
		}
	}

	printDocument(doc, engines)
	return nil
}

func printDocument(doc *object.Document, engines map[string]*engine.Engine) {
	for _, obj := range doc.Objects() {
		pterm.DefaultSection.Println(obj.Label())

		rows := pterm.TableData{{"Property", "Value", "Expression"}}
		var records map[string]string
		if eng, ok := engines[obj.Name()]; ok {
			records = make(map[string]string)
			for _, rec := range eng.Records() {
				records[rec.Path] = rec.Expression
			}
		}

		for _, prop := range obj.Properties() {
			path := object.Path{Object: obj.Name(), Property: prop.Name()}
			expression := records[path.String()]
			rows = append(rows, []string{
				prop.Name(),
				object.FormatValue(prop.Get()),
				expression,
			})
		}

		pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	}
}
