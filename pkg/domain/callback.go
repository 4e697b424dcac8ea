package domain

const RepeatCallbackPrefix = "repeat_"
