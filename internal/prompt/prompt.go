// Package prompt renders the generation prompts for the recipe and waste pipelines.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// DefaultPantryStaples may be added to any suggested recipe without the user owning them.
var DefaultPantryStaples = []string{
	"salt", "pepper", "sugar", "soy sauce", "cooking oil", "garlic", "sesame oil", "water",
}

// DefaultLanguage is used when no response language is configured.
const DefaultLanguage = "Korean"

// ErrNoIngredients is returned when a recipe prompt is requested without ingredients.
var ErrNoIngredients = errors.New("prompt: at least one ingredient is required")

var recipePromptTmpl = template.Must(template.New("recipe").Parse(`You are a chef assistant that suggests home-cooking recipes.

[User ingredients]
{{.IngredientList}}

[Reference recipes]
{{.Context}}

Requirements:
1) Produce exactly {{.NumSuggestions}} recipes as a JSON array of objects and output nothing else: no prose, no Markdown fences.
2) Every user ingredient must appear in at least one recipe.
3) At least one recipe must be a new dish that does not appear in the reference recipes, and it must be the last element of the array.
4) These pantry staples may be added freely: {{.StapleList}}.
5) Each object has exactly these fields: "title" (string), "ingredients" (array of strings), "instructions" (string), "source_url" (string or null), "image_url" (string or null), "calories" (number, estimated kcal per serving).
6) Write titles, ingredients and instructions in {{.Language}}.
`))

var wastePromptTmpl = template.Must(template.New("waste").Parse(`[User question]
{{.Question}}

[Official guidance excerpts]
{{.Context}}

Using only the excerpts above, explain in a single coherent passage:
1) what kind of waste this is,
2) how to dispose of it,
3) what to be careful about.
If the excerpts do not cover the question, say so explicitly instead of guessing.
Answer in {{.Language}}.
`))

// WasteSystemInstruction frames the waste answering model.
const WasteSystemInstruction = "You are an assistant that explains household waste sorting and disposal rules. " +
	"Ground every statement in the supplied official guidance and keep the advice accurate and safe."

// RecipePromptInput holds the values rendered into the recipe prompt.
type RecipePromptInput struct {
	Ingredients    []string
	Context        string
	NumSuggestions int
	PantryStaples  []string
	Language       string
}

// WastePromptInput holds the values rendered into the waste question prompt.
type WastePromptInput struct {
	Question string
	Context  string
	Language string
}

// BuildRecipePrompt renders the recipe suggestion prompt.
func BuildRecipePrompt(in RecipePromptInput) (string, error) {
	if len(in.Ingredients) == 0 {
		return "", ErrNoIngredients
	}

	staples := in.PantryStaples
	if staples == nil {
		staples = DefaultPantryStaples
	}

	num := in.NumSuggestions
	if num <= 0 {
		num = 3
	}

	data := struct {
		IngredientList string
		Context        string
		NumSuggestions int
		StapleList     string
		Language       string
	}{
		IngredientList: strings.Join(in.Ingredients, ", "),
		Context:        in.Context,
		NumSuggestions: num,
		StapleList:     strings.Join(staples, ", "),
		Language:       languageOrDefault(in.Language),
	}

	return render(recipePromptTmpl, data)
}

// BuildWastePrompt renders the user part of the waste question prompt.
func BuildWastePrompt(in WastePromptInput) (string, error) {
	data := struct {
		Question string
		Context  string
		Language string
	}{
		Question: strings.TrimSpace(in.Question),
		Context:  in.Context,
		Language: languageOrDefault(in.Language),
	}

	return render(wastePromptTmpl, data)
}

func languageOrDefault(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return DefaultLanguage
	}

	return lang
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}

	return buf.String(), nil
}
