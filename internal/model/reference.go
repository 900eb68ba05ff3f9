package model

import (
	"slices"
	"time"
)

// Section is the physical location on a panel that a reference documents
type Section string

const (
	SectionDoor      Section = "Door"
	SectionBox       Section = "Box"
	SectionSaddle    Section = "Saddle"
	SectionRouting   Section = "Routing"
	SectionTerminal  Section = "Terminal"
	SectionFrontView Section = "Front View"
	SectionSideView  Section = "Side View"
)

// Sections lists every panel section in display order
var Sections = []Section{
	SectionDoor,
	SectionBox,
	SectionSaddle,
	SectionRouting,
	SectionTerminal,
	SectionFrontView,
	SectionSideView,
}

// Valid reports whether s is one of the known panel sections
func (s Section) Valid() bool {
	return slices.Contains(Sections, s)
}

// CommonTags are the tags suggested by the reference form
var CommonTags = []string{
	"mesh", "bundling", "bend radius", "torque", "labeling", "routing",
	"clearance", "separation", "grounding", "neatness", "UL-certified",
}

// Reference represents a documented wiring example with its image
type Reference struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required,max=200"`
	Customer    string    `json:"customer" validate:"required,max=120"`
	OrderNumber string    `json:"orderNumber" validate:"required,max=60"`
	Section     Section   `json:"section" validate:"required,section"`
	Tags        []string  `json:"tags" validate:"dive,required,max=40"`
	Notes       string    `json:"notes" validate:"max=4000"`
	Image       Image     `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasTag reports whether the reference carries tag
func (r Reference) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// AddTag appends tag unless it is already present
func (r *Reference) AddTag(tag string) bool {
	if tag == "" || r.HasTag(tag) {
		return false
	}
	r.Tags = append(r.Tags, tag)
	return true
}

// RemoveTag drops every occurrence of tag
func (r *Reference) RemoveTag(tag string) {
	r.Tags = slices.DeleteFunc(r.Tags, func(t string) bool { return t == tag })
}

// Clone returns a copy that shares no slices with r
func (r Reference) Clone() Reference {
	r.Tags = slices.Clone(r.Tags)
	return r
}
