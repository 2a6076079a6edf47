package topics

// Topic is one subject the bot posts about.
type Topic struct {
	Name      string
	Subtopics []string
	KeyTerms  []string
}

// Catalog is an ordered, read-only list of topics. Order decides ties in the
// scheduler.
type Catalog struct {
	topics []Topic
	index  map[string]int
}

// NewCatalog copies topics; topics without a name or subtopics are dropped.
func NewCatalog(topics []Topic) *Catalog {
	c := &Catalog{index: make(map[string]int, len(topics))}
	for _, t := range topics {
		if t.Name == "" || len(t.Subtopics) == 0 {
			continue
		}
		if _, dup := c.index[t.Name]; dup {
			continue
		}
		c.index[t.Name] = len(c.topics)
		c.topics = append(c.topics, Topic{
			Name:      t.Name,
			Subtopics: append([]string(nil), t.Subtopics...),
			KeyTerms:  append([]string(nil), t.KeyTerms...),
		})
	}
	return c
}

func (c *Catalog) Len() int {
	return len(c.topics)
}

// Names returns topic names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.topics))
	for i, t := range c.topics {
		names[i] = t.Name
	}
	return names
}

func (c *Catalog) Lookup(name string) (Topic, bool) {
	i, ok := c.index[name]
	if !ok {
		return Topic{}, false
	}
	return c.topics[i], true
}

// DefaultCatalog is the mental-health rotation.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Topic{
		{
			Name: "stress_management",
			Subtopics: []string{
				"progressive muscle relaxation",
				"breathing techniques",
				"stress hormones",
				"workplace stress",
				"academic stress",
				"physical symptoms of stress",
			},
			KeyTerms: []string{"cortisol", "adrenaline", "relaxation", "coping"},
		},
		{
			Name: "mindfulness",
			Subtopics: []string{
				"body scan meditation",
				"mindful walking",
				"present moment awareness",
				"mindful eating",
				"meditation science",
				"neuroplasticity",
			},
			KeyTerms: []string{"awareness", "presence", "meditation", "focus"},
		},
		{
			Name: "mental_health_facts",
			Subtopics: []string{
				"common misconceptions",
				"stigma reduction",
				"mental health statistics",
				"latest research",
				"treatment options",
				"brain chemistry",
			},
			KeyTerms: []string{"research", "facts", "studies", "science"},
		},
		{
			Name: "self_care",
			Subtopics: []string{
				"daily routines",
				"emotional boundaries",
				"digital wellbeing",
				"creative expression",
				"nature connection",
				"social connections",
			},
			KeyTerms: []string{"routine", "boundaries", "wellness", "care"},
		},
		{
			Name: "anxiety_depression",
			Subtopics: []string{
				"anxiety management",
				"depression coping",
				"panic attacks",
				"mood tracking",
				"therapy types",
				"medication facts",
			},
			KeyTerms: []string{"anxiety", "depression", "panic", "therapy"},
		},
		{
			Name: "sleep_health",
			Subtopics: []string{
				"sleep hygiene",
				"circadian rhythm",
				"sleep disorders",
				"bedtime routines",
				"sleep science",
				"dream psychology",
			},
			KeyTerms: []string{"sleep", "rest", "insomnia", "dreams"},
		},
		{
			Name: "nutrition_mental_health",
			Subtopics: []string{
				"gut-brain connection",
				"mood-boosting foods",
				"nutritional psychiatry",
				"hydration impact",
				"eating patterns",
				"supplements research",
			},
			KeyTerms: []string{"nutrition", "diet", "food", "gut health"},
		},
	})
}
