package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// readValues takes samples from the arguments, or from a file when one is
// given. Values may be separated by whitespace or commas.
func readValues(args []string, file string) ([]float64, error) {
	if file == "" {
		return parseValues(args)
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("give values as arguments or --file, not both")
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()
	return parseValueFile(f)
}

// parseValueFile reads samples line by line, skipping '#' comments
func parseValueFile(r io.Reader) ([]float64, error) {
	var fields []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields = append(fields, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return parseValues(fields)
}

func parseValues(args []string) ([]float64, error) {
	values := make([]float64, 0, len(args))
	for _, arg := range args {
		for _, field := range splitValues(arg) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q: %w", field, err)
			}
			values = append(values, v)
		}
	}
	return values, nil
}

func splitValues(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
