package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceService_EmbeddedCatalog(t *testing.T) {
	svc, err := NewResourceService()
	require.NoError(t, err)

	practice := svc.Practice()
	require.Len(t, practice, 2)
	assert.Equal(t, "Aptitude", practice[0].Name)
	assert.Equal(t, "IndiaBix", practice[0].Resources[0].Title)
	assert.Len(t, practice[1].Resources, 7)

	assert.Len(t, svc.Concepts(""), 17)
}

func TestResourceService_ConceptSearch(t *testing.T) {
	svc, err := NewResourceService()
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "java", want: []string{"Java", "JavaScript", "Spring Boot"}},
		{query: "  DATABASE ", want: []string{"MySQL", "MongoDB", "DBMS"}},
		{query: "c++", want: []string{"C++"}},
		{query: "no such topic", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := []string{}
			for _, r := range svc.Concepts(tt.query) {
				got = append(got, r.Title)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResourceService_RejectsIncompleteCatalog(t *testing.T) {
	_, err := NewResourceServiceFromYAML([]byte("concepts:\n  - title: Go\n"))
	assert.Error(t, err)

	_, err = NewResourceServiceFromYAML([]byte("practice: [unclosed"))
	assert.Error(t, err)
}
