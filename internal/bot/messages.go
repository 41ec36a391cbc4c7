package bot

const (
	msgWelcome         = "Hi! I keep track of your daily activities. Pick an option from the menu below."
	msgChooseType      = "Choose the activity type:"
	msgEnterName       = "Enter the activity name:"
	msgNameTaken       = "An activity with this name already exists. Try another name:"
	msgNameInvalid     = "The name must be between 1 and 100 characters. Try again:"
	msgNoActivities    = "You have no activities yet. Press \"Add activity\" to create one."
	msgPickActivity    = "Pick an activity to track:"
	msgEnterMinutes    = "Enter the number of minutes:"
	msgWholeNumber     = "Please enter a whole number."
	msgTooManyMinutes  = "That is more minutes than a day can hold. Enter a smaller number:"
	msgNotTimeActivity = "Minutes can only be added to time activities."
	msgChoosePeriod    = "Choose a period for statistics:"
	msgNotFound        = "Activity not found!"
	msgEndBeforeStart  = "The end date cannot be earlier than the start date!"
	msgExpired         = "This button has expired. Start again from the menu."
	msgUseMenu         = "Please use the menu below."
	msgCancelled       = "Cancelled."
	msgAllDone         = "All done!"
	msgGenericFailure  = "Something went wrong. Please start again from the menu."
	msgUnknownCallback = "Unknown action."
)
