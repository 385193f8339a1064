package service

// Prompt templates for recommendations, the adaptive interview and the
// home feed. Placeholders are {name} tokens filled with strings.Replacer.

const outputFormatMarker = "CRITICAL - OUTPUT FORMAT:"

const basePrompt = `You are an expert literary matchmaker. A reader has shared books they love:

{user_book_list}

TASK: Work out what these books have in common for this reader and recommend 5-7 books they have not listed.

ANALYSIS:
1. Identify the shared tropes, themes and microthemes across their books.
2. Note the pacing, tone and emotional payoff they seem to seek.
3. Describe the relationship dynamics they gravitate toward.
4. Name the reader need these books meet (Escapism, Comfort, Catharsis, Challenge, Education).

RECOMMENDATION RULES:
- Never recommend a book from the reader's list or another book in the same series.
- Mix well-known titles with lesser-known gems.
- Prefer books that match several patterns at once over books that match one strongly.

CRITICAL - OUTPUT FORMAT:
Return a single JSON object with exactly these top-level keys and no text before or after:
{
  "analysis": {
    "reader_profile": "2-3 sentence description of what this reader enjoys",
    "common_tropes": ["trope1", "trope2"],
    "common_themes": ["theme1", "theme2"]
  },
  "intro_text": "A brief, friendly opening sentence acknowledging their taste",
  "recommendations": [
    {
      "title": "Book Title",
      "author": "Author Name",
      "genre": "Primary genre",
      "description": "One or two sentence synopsis",
      "tropes": ["trope1", "trope2"],
      "themes": ["theme1", "theme2"],
      "microthemes": ["micro1", "micro2"],
      "relationship_dynamics": {
        "romantic": "description or null",
        "platonic": "description or null",
        "familial": "description or null",
        "rivalries": "description or null"
      },
      "pacing": "e.g., Fast-paced",
      "reader_need": "e.g., Escapism",
      "match_reasoning": "Why this book fits the reader's patterns",
      "confidence_score": 0.9
    }
  ]
}`

const contextSection = `

ADDITIONAL USER CONTEXT:
The user has provided the following preferences:

{context}

Please incorporate these preferences into your analysis and recommendations.
Prioritize books that align with both the input book patterns AND these stated preferences.
`

const interviewSection = `

DETAILED USER PREFERENCES (from interview):

{interview}

These preferences were gathered through an adaptive interview and should be the PRIMARY
driver of recommendations. Use input books as secondary context for genre/style preferences.

When making recommendations:
1. Prioritize alignment with stated preferences
2. Use input books to understand reading history
3. Ensure recommendations respect content preferences mentioned
4. Explain how each recommendation aligns with specific interview insights
`

const interviewOnlyPrompt = `TASK: Based solely on the user's interview responses, recommend 4-6 books that match their preferences.

USER PREFERENCES (from interview):
{interview}

CRITICAL - OUTPUT FORMAT:
You MUST return EXACTLY this structure. Do NOT return analysis fields at the top level.

CORRECT structure (use this):
{
  "analysis": {
    "reader_profile": "2-3 sentence description of what this reader enjoys and seeks in books based on the interview"
  },
  "recommendations": [
    {
      "title": "recommended book 1 title",
      "author": "author name",
      "tropes": ["trope1", "trope2"],
      "themes": ["theme1", "theme2"],
      "microthemes": ["micro1", "micro2"],
      "relationship_dynamics": {
        "romantic": "description",
        "platonic": "description",
        "familial": "description",
        "rivalries": "description"
      },
      "pacing": "e.g., Fast-paced",
      "reader_need": "e.g., Escapism",
      "match_reasoning": "Detailed explanation of how this book aligns with the interview responses",
      "confidence_score": 0.95
    }
  ]
}

Your response MUST have these TWO top-level keys ONLY:
1. "analysis" - an OBJECT containing reader_profile
2. "recommendations" - an ARRAY of 4-6 book objects

Output ONLY valid JSON starting with {. No text before or after.
Base recommendations entirely on interview preferences.`

// questionStyle adapts phase-2 interview questions to a reader profile.
type questionStyle struct {
	Style            string
	Guidelines       string
	StoppingCriteria string
	TargetQuestions  int
}

// Reader profiles the interview analysis can assign.
const (
	ProfileArticulateExplorer = "articulate_explorer"
	ProfileDecisiveReader     = "decisive_reader"
	ProfileUncertainSeeker    = "uncertain_seeker"
	ProfileGenreNovice        = "genre_novice"
)

var questionStyles = map[string]questionStyle{
	ProfileArticulateExplorer: {
		Style: `Use open-ended, exploratory questions. Probe nuances and subtleties.
        Example: "What emotional journey do you crave in stories?"`,
		Guidelines:       "Aim for depth over breadth. Follow their lead on themes.",
		StoppingCriteria: "When you have a rich, nuanced understanding of their taste.",
		TargetQuestions:  6,
	},
	ProfileDecisiveReader: {
		Style: `Ask direct, targeted questions with binary choices. Be efficient.
        Example: "Fast-paced thrillers or slow-burn character studies?"`,
		Guidelines:       "Respect their time. Confirm key preferences quickly.",
		StoppingCriteria: "When specific preferences (genre, pacing, tone) are clear.",
		TargetQuestions:  4,
	},
	ProfileUncertainSeeker: {
		Style: `Provide structured options (A/B/C). Give concrete examples.
        Example: "Which appeals most? (A) Fast action, (B) Character focus, (C) Atmospheric"`,
		Guidelines:       "Guide them gently. Validate their choices.",
		StoppingCriteria: `When you have a solid "safe bet" direction.`,
		TargetQuestions:  5,
	},
	ProfileGenreNovice: {
		Style: `Use relatable comparisons (movies/TV). Avoid jargon. Provide context.
        Example: "Think of a movie you loved - action or character moments?"`,
		Guidelines:       `Focus on "vibes" and feelings rather than technical genres.`,
		StoppingCriteria: "When you have enough broad strokes to recommend accessible books.",
		TargetQuestions:  5,
	},
}

const interviewAnalysisPrompt = `Analyze this reader's communication style from their first 2 responses.

{books_context}

Conversation:
{conversation_history}

Classify into ONE profile:
- ARTICULATE_EXPLORER: Detailed (50+ words), specific examples, descriptive language
- DECISIVE_READER: Clear, concise (20-50 words), confident statements
- UNCERTAIN_SEEKER: Brief/vague (<20 words), uncertain language
- GENRE_NOVICE: New to reading/genre, limited knowledge, asks for guidance

Respond with JSON:
{
  "user_profile": "articulate_explorer|decisive_reader|uncertain_seeker|genre_novice",
  "confidence": 0.85,
  "reasoning": "Why this profile fits based on their responses",
  "response_characteristics": {
    "avg_word_count": 45,
    "specificity_level": "high|medium|low",
    "confidence_indicators": ["specific examples given", "uncertain language used"]
  },
  "recommended_strategy": "How to adapt Phase 2 questions"
}
`

const interviewInitPrompt = `Conduct the first phase of an adaptive book preference interview (2 questions total phase 1).

PHASE 1 GOAL: Assess the reader's communication style and readiness level.

{books_context}

Ask ONE question to understand:
- How they articulate preferences (detailed vs brief)
- Their confidence level about what they want
- Their reading/genre knowledge level

Good Phase 1 openers:
- WITH BOOKS: "What draws you to [titles]? The characters, plot, emotional experience, or something else?"
- WITHOUT BOOKS: "Tell me about a story (book/movie/TV) that resonated with you. What made it compelling?"

Respond with JSON:
{
  "question": "Your specific question",
  "reasoning": "Why this helps assess user readiness",
  "phase": 1
}

Be conversational and warm.`

const interviewFollowupPrompt = `Continue the adaptive reading preference interview.

CONTEXT:{books_context}

Conversation:
{conversation_history}

{profile_context}

STATUS:
- Phase: {phase}
- Question count: {question_count}
- Target questions: {target_questions}
- Guidelines: {phase_instructions}

OBJECTIVE:
Your goal is to understand the user's reading taste deeply enough to make excellent recommendations.
Do NOT follow a checklist. Follow the conversation naturally.

ADAPTIVE LOGIC:
1. Analyze the user's last response. What did it reveal? What is still unclear?
2. If the user seemed excited about a topic, DIG DEEPER into that.
3. If the user was vague, try a different angle or offer specific examples.
4. If you have enough information to make 5+ high-quality recommendations with confidence, STOP.

DECISION TO STOP (continue_interview: false):
- You have a clear "Reader Profile" in mind.
- You understand their preferred Tone, Pacing, and at least one core Genre/Theme.
- You are confident you can delight them.
- MAXIMUM questions: 10 (Force stop if count >= 10).

Respond with JSON:
{
  "continue_interview": true/false,
  "question": "next question (if continuing)",
  "context_summary": "brief summary of what we know so far",
  "reasoning": "Why you decided to continue or stop",
  "phase": {phase}
}
`

const phaseOneInstructions = `
PHASE 1: TONE-SETTING
Continue assessing communication style. After Q2, you'll adapt questions to their style.
`

const phaseTwoInstructions = `
PHASE 2: ADAPTIVE DEEP-DIVE

Question Style for this user:
{style}

Stopping Criteria: {stopping_criteria}

Focus areas: pacing, emotional tone, content boundaries, character preferences, themes/tropes
`

const homepageFeedPrompt = `Generate a curated list of book recommendations for a homepage feed based on the following genres: {genres}.
If genres are "General" or empty, provide a diverse mix of popular genres.

Output a JSON object with the following sections:
1. "new_releases": 5 recently published books (last 6 months) in these genres.
2. "popular": 5 highly rated/popular books currently trending in these genres.
3. "award_winning": 5 books that have won major awards (Hugo, Nebula, Pulitzer, Booker, etc.) in these genres.
4. "hidden_gems": 5 highly rated but less known books in these genres.

REQUIRED JSON OUTPUT FORMAT:
{
  "new_releases": [
    { "title": "Title", "author": "Author", "genre": "Genre" }
  ],
  "popular": [
    { "title": "Title", "author": "Author", "genre": "Genre" }
  ],
  "award_winning": [
    { "title": "Title", "author": "Author", "genre": "Genre" }
  ],
  "hidden_gems": [
    { "title": "Title", "author": "Author", "genre": "Genre" }
  ]
}
Return ONLY valid JSON. No markdown, no intro/outro text.`

const homepageNewsPrompt = `Find 5 recent, interesting news articles, blog posts, or author interviews related to books, reading, or publishing.
Focus on:
- Upcoming highly anticipated releases
- Author interviews or profiles
- Literary prize announcements
- Trends in the book world

REQUIRED JSON OUTPUT FORMAT:
{
  "news": [
    {
      "title": "Headline",
      "summary": "Brief 1-sentence summary",
      "url": "Link to article (if available, otherwise null)",
      "source": "Source Name (e.g. NYT, Guardian, Tor.com)",
      "date": "Date string (e.g. 'Oct 12, 2023')"
    }
  ]
}
Return ONLY valid JSON. No markdown.`
