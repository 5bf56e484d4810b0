// Command evaluate runs a single evaluation from the command line using the
// simulated data sources. Useful for demos and for inspecting certificates
// without a running server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"greenchain/credit-engine/internal/certificate"
	"greenchain/credit-engine/internal/engine"
	"greenchain/credit-engine/internal/geometry"
	"greenchain/credit-engine/internal/imagery"
	"greenchain/credit-engine/internal/lending"
	"greenchain/credit-engine/internal/weather"
)

func main() {
	var (
		requestPath = flag.String("request", "", "path to a JSON evaluation request; reads stdin when empty")
		profile     = flag.String("profile", "healthy", "simulated vegetation profile: healthy, improving, deforested, bare")
		pdfPath     = flag.String("pdf", "", "write the certificate PDF to this path")
	)
	flag.Parse()

	req, err := readRequest(*requestPath)
	if err != nil {
		log.Fatalf("read request: %v", err)
	}

	eng, err := engine.New(engine.DefaultConfig(), engine.Deps{
		Imagery: imagery.NewSimulatedSource(imagery.SimulatedProfile(*profile)),
		Weather: weather.NewSimulatedSource(),
	})
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}

	result, err := eng.Evaluate(context.Background(), *req)
	if err != nil {
		log.Fatalf("evaluate: %v", err)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(encoded))

	if *pdfPath != "" {
		if err := writePDF(result, *pdfPath); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
		fmt.Fprintf(os.Stderr, "certificate PDF written to %s\n", *pdfPath)
	}
}

func readRequest(path string) (*engine.Request, error) {
	if path == "" {
		stat, err := os.Stdin.Stat()
		if err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			// No piped input: fall back to the demo request.
			return demoRequest(), nil
		}
		var req engine.Request
		if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req engine.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func demoRequest() *engine.Request {
	return &engine.Request{
		Vertices: []geometry.Vertex{
			{Lat: 29.600, Lon: 76.270},
			{Lat: 29.600, Lon: 76.280},
			{Lat: 29.610, Lon: 76.280},
			{Lat: 29.610, Lon: 76.270},
		},
		Loan: lending.Request{FarmerID: "demo-farmer", Amount: 10000, Purpose: "seeds"},
	}
}

func writePDF(result *engine.Result, path string) error {
	renderer := certificate.NewPDFRenderer(certificate.DefaultPDFOptions())
	doc, err := renderer.Render(result.Certificate, result.Narrative.Text)
	if err != nil {
		return err
	}
	return os.WriteFile(path, doc, 0o644)
}
