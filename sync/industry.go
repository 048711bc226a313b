// ABOUTME: Industry label normalization between Apollo and Zoho vocabularies
// ABOUTME: Static lookup table with substring fallback; unknown labels pass through
package sync

import (
	"sort"
	"strings"
)

// industryTable maps Apollo industry labels onto the Zoho CRM picklist.
// Keys are the exact labels Apollo emits most often.
var industryTable = map[string]string{
	"SaaS":                              "Software",
	"Computer Software":                 "Software",
	"Internet":                          "Technology",
	"Information Technology & Services": "Technology",
	"Telecommunications":                "Communications",
	"Financial Services":                "Finance",
	"Banking":                           "Finance",
	"Venture Capital & Private Equity":  "Finance",
	"Insurance":                         "Insurance",
	"Hospital & Health Care":            "Healthcare",
	"Medical Devices":                   "Healthcare",
	"Biotechnology":                     "Biotechnology",
	"Pharmaceuticals":                   "Biotechnology",
	"Marketing & Advertising":           "Advertising",
	"E-Learning":                        "Education",
	"Higher Education":                  "Education",
	"Retail":                            "Retail",
	"Consumer Goods":                    "Consumer Products",
	"Real Estate":                       "Real Estate",
	"Construction":                      "Construction",
	"Machinery":                         "Manufacturing",
	"Automotive":                        "Manufacturing",
	"Electrical/Electronic Manufacturing": "Manufacturing",
	"Logistics & Supply Chain":            "Transportation",
	"Management Consulting":               "Consulting",
	"Legal Services":                      "Legal",
	"Government Administration":           "Government",
	"Non-Profit Organization Management":  "Non-Profit",
}

// industryKeys holds table keys in sorted order so the substring fallback
// is deterministic regardless of map iteration order.
var industryKeys = func() []string {
	keys := make([]string, 0, len(industryTable))
	for k := range industryTable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

// MapIndustry normalizes an Apollo industry label to a Zoho picklist value.
// Exact table hit wins; otherwise a case-insensitive substring match in
// either direction against table keys; otherwise the label passes through
// unchanged. Total and deterministic: never fails, MapIndustry("") == "".
func MapIndustry(label string) string {
	if label == "" {
		return ""
	}

	if mapped, ok := industryTable[label]; ok {
		return mapped
	}

	lower := strings.ToLower(label)
	for _, key := range industryKeys {
		keyLower := strings.ToLower(key)
		if strings.Contains(keyLower, lower) || strings.Contains(lower, keyLower) {
			return industryTable[key]
		}
	}

	return label
}
