// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package workflow assembles the stage commands into executable branch
// pipelines. This file parses the configured prompt templates once at
// startup so a malformed template fails the process at boot rather than
// mid-campaign.
package workflow

import (
	"fmt"
	"text/template"

	"github.com/mediaforge/campaign-engine/internal/cloud"
)

// Templates holds the parsed prompt templates for every generation stage.
type Templates struct {
	AestheticBible  *template.Template
	Script          *template.Template
	Storyboard      *template.Template
	PromptOptimizer *template.Template
	BlogPost        *template.Template
	BlogHero        *template.Template
	AdImage         *template.Template
}

// ParseTemplates parses every configured prompt template.
func ParseTemplates(cfg *cloud.Config) (*Templates, error) {
	parse := func(name, text string) (*template.Template, error) {
		t, err := template.New(name).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s prompt template: %w", name, err)
		}
		return t, nil
	}

	out := &Templates{}
	var err error
	if out.AestheticBible, err = parse("aesthetic_bible", cfg.PromptTemplates.AestheticBible); err != nil {
		return nil, err
	}
	if out.Script, err = parse("script", cfg.PromptTemplates.Script); err != nil {
		return nil, err
	}
	if out.Storyboard, err = parse("storyboard", cfg.PromptTemplates.Storyboard); err != nil {
		return nil, err
	}
	if out.PromptOptimizer, err = parse("prompt_optimizer", cfg.PromptTemplates.PromptOptimizer); err != nil {
		return nil, err
	}
	if out.BlogPost, err = parse("blog_post", cfg.PromptTemplates.BlogPost); err != nil {
		return nil, err
	}
	if out.BlogHero, err = parse("blog_hero", cfg.PromptTemplates.BlogHero); err != nil {
		return nil, err
	}
	if out.AdImage, err = parse("ad_image", cfg.PromptTemplates.AdImage); err != nil {
		return nil, err
	}
	return out, nil
}
